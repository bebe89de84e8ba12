package tui

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/evanschultz/tuikan/internal/app"
	"github.com/evanschultz/tuikan/internal/domain"
)

// Palette shared by every view.
var (
	accentColor = lipgloss.Color("62")
	mutedColor  = lipgloss.Color("241")
	dimColor    = lipgloss.Color("239")
	titleColor  = lipgloss.Color("252")
	selectColor = lipgloss.Color("212")
	errorColor  = lipgloss.Color("203")
)

// defaultNoticeTTL is how long a transient notice stays on screen.
const defaultNoticeTTL = 4 * time.Second

// Model renders a session and feeds it key presses.
type Model struct {
	ctx     context.Context
	session *app.Session

	ready  bool
	width  int
	height int

	help     help.Model
	markdown *markdownRenderer

	renderMarkdown bool
	noticeTTL      time.Duration
	noticeSeq      int
	shownNotice    string
}

// clearNoticeMsg expires the notice scheduled with the same sequence number.
type clearNoticeMsg struct {
	seq int
}

// NewModel constructs a model over session.
func NewModel(session *app.Session, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		ctx:            context.Background(),
		session:        session,
		help:           h,
		markdown:       &markdownRenderer{},
		renderMarkdown: true,
		noticeTTL:      defaultNoticeTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.shownNotice = session.Notice()
	return m
}

// Init schedules expiry of a notice carried over from loading.
func (m Model) Init() tea.Cmd {
	if m.shownNotice == "" || m.noticeTTL <= 0 {
		return nil
	}
	return m.expireNotice(m.noticeSeq)
}

// Update handles window, key and timer messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		out := m.session.HandleKey(m.ctx, keyFromMsg(msg))
		if out.Quit {
			return m, tea.Quit
		}
		return m, m.noticeCmd()

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.session.ClearNotice()
			m.shownNotice = ""
		}
		return m, nil

	default:
		return m, nil
	}
}

// noticeCmd starts an expiry timer when a new notice appears.
func (m *Model) noticeCmd() tea.Cmd {
	notice := m.session.Notice()
	if notice == "" {
		m.shownNotice = ""
		return nil
	}
	if notice == m.shownNotice || m.noticeTTL <= 0 {
		m.shownNotice = notice
		return nil
	}
	m.shownNotice = notice
	m.noticeSeq++
	return m.expireNotice(m.noticeSeq)
}

// expireNotice fires clearNoticeMsg for seq after the notice TTL.
func (m Model) expireNotice(seq int) tea.Cmd {
	return tea.Tick(m.noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}

// keyFromMsg converts a terminal key press into a dispatcher key.
func keyFromMsg(msg tea.KeyPressMsg) app.Key {
	return app.Key{Name: msg.String(), Text: msg.Text}
}

// View renders the board, overlays and footer.
func (m Model) View() tea.View {
	view := tea.NewView(m.render())
	view.AltScreen = true
	return view
}

// render builds the full screen as a string.
func (m Model) render() string {
	if !m.ready {
		return "loading..."
	}
	st := m.session.State()
	stack := m.session.Stack()
	top := stack.Top()

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(titleColor)
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)

	project, hasProject := st.ActiveProject()
	header := titleStyle.Render("tuikan")
	if hasProject {
		header += "  " + project.Name
		if len(st.Projects) > 1 {
			header += statusStyle.Render(fmt.Sprintf("  (%d/%d)", st.ProjectIndex(project.ID)+1, len(st.Projects)))
		}
	}
	header += statusStyle.Render("  [" + top.Kind.String() + "]")

	sections := []string{header, ""}
	if hasProject {
		sections = append(sections, m.renderBoard(project, stack.Cursor()))
	} else {
		keys := m.session.KeyMap()
		sections = append(sections,
			"No projects yet.",
			fmt.Sprintf("Press %s to open projects, then %s to create one.", keys.Projects.Help().Key, keys.NewProject.Help().Key),
			fmt.Sprintf("Press %s to quit.", keys.Quit.Help().Key),
		)
	}
	if prompt := modePrompt(top); prompt != "" {
		sections = append(sections, "", lipgloss.NewStyle().Foreground(accentColor).Render(prompt))
	}
	if notice := m.session.Notice(); notice != "" {
		noticeStyle := statusStyle
		if strings.HasPrefix(notice, "save failed") || strings.HasPrefix(notice, "copy failed") {
			noticeStyle = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
		}
		sections = append(sections, noticeStyle.Render(notice))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.ShortHelpView(m.session.KeyMap().HelpFor(top)))

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	full := content + "\n" + helpLine

	if overlay := m.renderOverlay(&st, stack, m.width-8); overlay != "" {
		overlayHeight := lipgloss.Height(full)
		if m.height > 0 {
			overlayHeight = m.height
		}
		full = overlayOnContent(full, overlay, max(1, m.width), max(1, overlayHeight))
	}
	return full
}

// renderBoard draws the four pipeline columns of project.
func (m Model) renderBoard(project *domain.Project, cursor app.Cursor) string {
	colWidth := m.columnWidth()
	baseColStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(0, 1).
		MarginRight(1).
		Width(colWidth)
	selColStyle := baseColStyle.BorderForeground(accentColor)
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	selectedTaskStyle := lipgloss.NewStyle().Foreground(selectColor).Bold(true)

	innerHeight := m.columnInnerHeight()
	views := make([]string, 0, domain.ColumnCount)
	for _, name := range domain.Pipeline {
		column := project.Board.Columns[name]
		lines := []string{colTitle.Render(fmt.Sprintf("%s (%d)", name.Title(), column.Len()))}
		if column.Len() == 0 {
			lines = append(lines, emptyStyle.Render("(empty)"))
		}
		selectedLine := -1
		for idx, task := range column.Tasks {
			selected := name == cursor.Column && idx == cursor.Task
			prefix := "  "
			if selected {
				prefix = "│ "
			}
			title := prefix + truncate(task.Title, max(1, colWidth-4))
			if selected {
				title = selectedTaskStyle.Render(title)
				selectedLine = len(lines)
			}
			lines = append(lines, title)
			if tags := renderTags(task.Tags, colWidth-4); tags != "" {
				lines = append(lines, "  "+tags)
			}
		}
		lines = scrollWindow(lines, selectedLine, innerHeight)
		body := fitLines(strings.Join(lines, "\n"), innerHeight)
		if name == cursor.Column {
			views = append(views, selColStyle.Render(body))
		} else {
			views = append(views, baseColStyle.Render(body))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// renderTags draws tag chips in their label colours.
func renderTags(tags []string, width int) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tags))
	used := 0
	for idx, tag := range tags {
		chip := "#" + tag
		if used+ansi.StringWidth(chip) > width && idx > 0 {
			parts = append(parts, lipgloss.NewStyle().Foreground(mutedColor).Render(fmt.Sprintf("+%d", len(tags)-idx)))
			break
		}
		used += ansi.StringWidth(chip) + 1
		parts = append(parts, tagStyle(tag).Render(chip))
	}
	return strings.Join(parts, " ")
}

// tagStyle colours a tag label.
func tagStyle(label string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(tagColor(domain.ColorOf(label)))
}

// tagColor maps a tag colour to a terminal colour.
func tagColor(c domain.TagColor) color.Color {
	switch c {
	case domain.TagRed:
		return lipgloss.Color("203")
	case domain.TagYellow:
		return lipgloss.Color("221")
	case domain.TagGreen:
		return lipgloss.Color("114")
	default:
		return lipgloss.Color("255")
	}
}

// renderOverlay draws the modal for the active mode, if it has one.
func (m Model) renderOverlay(st *domain.State, stack app.Stack, maxWidth int) string {
	top := stack.Top()
	switch top.Kind {
	case app.ModeHelp:
		return m.renderHelpOverlay(maxWidth)
	case app.ModeProjectList, app.ModeAddingProject:
		return m.renderProjectOverlay(st, stack, maxWidth)
	case app.ModeTaskDetail, app.ModeEditing, app.ModeAddingTag:
		modes := stack.Modes()
		for idx := len(modes) - 1; idx >= 0; idx-- {
			if modes[idx].Kind == app.ModeTaskDetail {
				return m.renderTaskOverlay(st, modes[idx], top, maxWidth)
			}
		}
	}
	return ""
}

// modalStyle is the rounded box used by every overlay.
func modalStyle(maxWidth, minWidth, maxW int) lipgloss.Style {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1)
	if maxWidth > 0 {
		style = style.Width(clamp(maxWidth, minWidth, maxW))
	}
	return style
}

// renderTaskOverlay draws the task detail view with the focused field marked.
func (m Model) renderTaskOverlay(st *domain.State, detail, top app.Mode, maxWidth int) string {
	task, ok := st.Task(detail.TaskID)
	if !ok {
		return ""
	}
	box := modalStyle(maxWidth, 28, 80)
	innerWidth := clamp(maxWidth, 28, 80) - 4
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	hintStyle := lipgloss.NewStyle().Foreground(mutedColor)
	focusStyle := lipgloss.NewStyle().Bold(true).Foreground(selectColor)

	label := func(f app.Field) string {
		if detail.Field == f {
			return focusStyle.Render("› " + f.String())
		}
		return hintStyle.Render("  " + f.String())
	}
	editing := top.Kind == app.ModeEditing

	lines := []string{titleStyle.Render("Task"), label(app.FieldTitle)}
	if editing && top.Field == app.FieldTitle {
		lines = append(lines, "  "+top.Buffer+"█")
	} else {
		lines = append(lines, "  "+task.Title)
	}

	lines = append(lines, label(app.FieldTags))
	if len(task.Tags) == 0 {
		lines = append(lines, hintStyle.Render("  (no tags)"))
	}
	for idx, tag := range task.Tags {
		lines = append(lines, fmt.Sprintf("  %d. %s", idx+1, tagStyle(tag).Render(tag)))
	}

	lines = append(lines, label(app.FieldDescription))
	switch {
	case editing && top.Field == app.FieldDescription:
		lines = append(lines, indent(top.Buffer+"█", "  "))
	case strings.TrimSpace(task.Description) == "":
		lines = append(lines, hintStyle.Render("  (no description)"))
	case m.renderMarkdown:
		lines = append(lines, m.markdown.render(task.Description, innerWidth))
	default:
		lines = append(lines, indent(task.Description, "  "))
	}
	return box.Render(strings.Join(lines, "\n"))
}

// renderProjectOverlay draws the project list.
func (m Model) renderProjectOverlay(st *domain.State, stack app.Stack, maxWidth int) string {
	box := modalStyle(maxWidth, 28, 60)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	hintStyle := lipgloss.NewStyle().Foreground(mutedColor)
	selectedStyle := lipgloss.NewStyle().Foreground(selectColor).Bold(true)

	cursor := -1
	for _, mode := range stack.Modes() {
		if mode.Kind == app.ModeProjectList {
			cursor = mode.ProjectCursor
		}
	}

	lines := []string{titleStyle.Render("Projects")}
	if len(st.Projects) == 0 {
		lines = append(lines, hintStyle.Render("(no projects)"))
	}
	for idx, project := range st.Projects {
		marker := "  "
		if project.ID == st.ActiveProjectID {
			marker = "* "
		}
		line := fmt.Sprintf("%s%s  %s", marker, project.Name, hintStyle.Render(fmt.Sprintf("%d tasks", project.Board.TaskCount())))
		if idx == cursor {
			line = selectedStyle.Render("│ ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	if top := stack.Top(); top.Kind == app.ModeAddingProject {
		lines = append(lines, "", "name: "+top.Buffer+"█")
	}
	return box.Render(strings.Join(lines, "\n"))
}

// renderHelpOverlay lists every binding.
func (m Model) renderHelpOverlay(maxWidth int) string {
	box := modalStyle(maxWidth, 40, 100)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	helpBubble := m.help
	helpBubble.ShowAll = true
	helpBubble.SetWidth(max(0, clamp(maxWidth, 40, 100)-4))
	return box.Render(titleStyle.Render("Keys") + "\n" + helpBubble.FullHelpView(m.session.KeyMap().FullHelp()))
}

// modePrompt describes the single-line inputs shown below the board.
func modePrompt(top app.Mode) string {
	switch top.Kind {
	case app.ModeAddingTask:
		return fmt.Sprintf("new task in %s: %s█", top.Column.Title(), top.Buffer)
	case app.ModeAddingTag:
		return "new tag: " + top.Buffer + "█"
	default:
		return ""
	}
}

// columnWidth returns the inner width of one board column.
func (m Model) columnWidth() int {
	w := 28
	if m.width > 0 {
		// Per-column overhead: left/right border (2), horizontal padding (2), margin-right (1)
		const colOverhead = 5
		if candidate := (m.width - domain.ColumnCount*colOverhead) / domain.ColumnCount; candidate > 0 {
			w = candidate
		}
	}
	return clamp(w, 16, 48)
}

// columnInnerHeight returns how many lines fit inside one column.
func (m Model) columnInnerHeight() int {
	// header, spacer, column borders, prompt, notice and footer
	const chrome = 9
	return max(6, m.height-chrome)
}

// scrollWindow keeps the selected line and the line after it visible within
// height lines. The first line is the column title and stays pinned.
func scrollWindow(lines []string, selected, height int) []string {
	if len(lines) <= height || height <= 1 {
		return lines
	}
	head, rest := lines[0], lines[1:]
	window := height - 1
	top := 0
	if selected > 0 {
		last := min(selected, len(rest)-1)
		if last >= window {
			top = last - window + 1
		}
	}
	top = clamp(top, 0, len(rest)-window)
	return append([]string{head}, rest[top:top+window]...)
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for idx := range lines {
		lines[idx] = prefix + lines[idx]
	}
	return strings.Join(lines, "\n")
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
