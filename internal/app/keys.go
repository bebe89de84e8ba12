package app

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// Key is one key press as seen by the dispatcher. Name is the canonical key
// string ("a", "enter", "ctrl+p", "space"); Text holds the printable
// characters the key produced, if any.
type Key struct {
	Name string
	Text string
}

// String returns the canonical key name so bindings can match it.
func (k Key) String() string {
	return k.Name
}

// KeyPress builds a Key from its canonical name, deriving Text for printable keys.
func KeyPress(name string) Key {
	switch {
	case name == "space":
		return Key{Name: name, Text: " "}
	case utf8.RuneCountInString(name) == 1:
		r, _ := utf8.DecodeRuneInString(name)
		if unicode.IsPrint(r) {
			return Key{Name: name, Text: name}
		}
	}
	return Key{Name: name}
}

// KeyConfig holds optional single-key overrides for Normal-mode commands.
type KeyConfig struct {
	AddTask      string
	AddTag       string
	MoveForward  string
	MoveBackward string
	DeleteTask   string
	Projects     string
	Help         string
	Yank         string
}

// KeyMap holds every binding the dispatcher matches against.
type KeyMap struct {
	Quit         key.Binding
	Help         key.Binding
	Left         key.Binding
	Right        key.Binding
	Up           key.Binding
	Down         key.Binding
	AddTask      key.Binding
	AddTag       key.Binding
	MoveForward  key.Binding
	MoveBackward key.Binding
	DeleteTask   key.Binding
	OpenTask     key.Binding
	Projects     key.Binding
	Yank         key.Binding

	Commit    key.Binding
	Cancel    key.Binding
	Abort     key.Binding
	Erase     key.Binding
	NextField key.Binding
	PrevField key.Binding
	RemoveTag key.Binding

	SelectProject key.Binding
	NewProject    key.Binding
	DeleteProject key.Binding
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Left:         key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		Right:        key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		Up:           key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:         key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		AddTask:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add task")),
		AddTag:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "add tag")),
		MoveForward:  key.NewBinding(key.WithKeys("m", "]"), key.WithHelp("m/]", "move task forward")),
		MoveBackward: key.NewBinding(key.WithKeys("n", "["), key.WithHelp("n/[", "move task backward")),
		DeleteTask:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete task")),
		OpenTask:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open task")),
		Projects:     key.NewBinding(key.WithKeys("ctrl+p", "p"), key.WithHelp("ctrl+p", "projects")),
		Yank:         key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy title")),

		Commit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Abort:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "cancel")),
		Erase:     key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "delete char")),
		NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field")),
		RemoveTag: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "remove tag"),
		),

		SelectProject: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open project")),
		NewProject:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "new project")),
		DeleteProject: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete project")),
	}
}

// NewKeyMap returns the stock bindings with cfg overrides applied.
func NewKeyMap(cfg KeyConfig) KeyMap {
	k := DefaultKeyMap()
	k.applyConfig(cfg)
	return k
}

// applyConfig applies non-blank overrides. A value equal to the stock key
// keeps the stock aliases.
func (k *KeyMap) applyConfig(cfg KeyConfig) {
	overrides := []struct {
		binding  *key.Binding
		raw      string
		fallback string
		desc     string
	}{
		{&k.AddTask, cfg.AddTask, "a", "add task"},
		{&k.AddTag, cfg.AddTag, "t", "add tag"},
		{&k.MoveForward, cfg.MoveForward, "m", "move task forward"},
		{&k.MoveBackward, cfg.MoveBackward, "n", "move task backward"},
		{&k.DeleteTask, cfg.DeleteTask, "d", "delete task"},
		{&k.Projects, cfg.Projects, "ctrl+p", "projects"},
		{&k.Help, cfg.Help, "?", "toggle help"},
		{&k.Yank, cfg.Yank, "y", "copy title"},
	}
	for _, o := range overrides {
		raw := strings.TrimSpace(o.raw)
		if raw == "" || strings.EqualFold(raw, o.fallback) {
			continue
		}
		configureBinding(o.binding, o.raw, o.fallback, o.desc)
	}
}

// configureBinding replaces the keys and help of b.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys converts a configured key into matcher keys and help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = fallback
	}
	if strings.EqualFold(value, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(value) == 1 {
		r, _ := utf8.DecodeRuneInString(value)
		if unicode.IsUpper(r) {
			return []string{value, "shift+" + string(unicode.ToLower(r))}, value
		}
		return []string{value}, value
	}
	return []string{strings.ToLower(value)}, value
}

// ShortHelp returns the footer bindings for Normal mode.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.AddTask, k.OpenTask, k.MoveForward, k.MoveBackward, k.Projects, k.Help, k.Quit}
}

// FullHelp returns every binding grouped for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Up, k.Down},
		{k.AddTask, k.AddTag, k.MoveForward, k.MoveBackward, k.DeleteTask, k.OpenTask, k.Yank},
		{k.Projects, k.Help, k.Quit},
		{k.Commit, k.Cancel, k.Abort, k.NextField, k.PrevField, k.RemoveTag},
	}
}

// HelpFor returns footer bindings for the given mode.
func (k KeyMap) HelpFor(mode Mode) []key.Binding {
	switch mode.Kind {
	case ModeAddingTask, ModeAddingTag, ModeAddingProject:
		return []key.Binding{k.Commit, k.Cancel}
	case ModeEditing:
		if mode.Field == FieldDescription {
			return []key.Binding{
				key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "newline")),
				key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "save")),
				k.Abort,
			}
		}
		return []key.Binding{k.Commit, k.Cancel}
	case ModeTaskDetail:
		bindings := []key.Binding{k.NextField, k.PrevField, key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit"))}
		if mode.Field == FieldTags {
			bindings = append(bindings, k.RemoveTag)
		}
		return append(bindings, k.Cancel)
	case ModeProjectList:
		return []key.Binding{k.Up, k.Down, k.SelectProject, k.NewProject, k.DeleteProject, k.Cancel}
	case ModeHelp:
		return []key.Binding{k.Cancel, k.Help}
	default:
		return k.ShortHelp()
	}
}
