package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ayurrec/internal/domain"
)

// RecommendPort is the TUI-facing subset of the recommend service.
type RecommendPort interface {
	Recommend(ctx context.Context, req domain.RecommendRequest) (domain.RecommendResponse, error)
	Therapies() []string
}

var severities = []domain.Severity{domain.SeverityOften, domain.SeverityAlways, domain.SeveritySometimes}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service   RecommendPort
	input     textinput.Model
	viewport  viewport.Model
	response  domain.RecommendResponse
	severity  int
	topN      int
	timeout   time.Duration
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(service RecommendPort, topN int, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe symptoms, e.g. headache, nausea and fever"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	status := fmt.Sprintf("Loaded %d therapies. Tab changes severity, Enter recommends.", len(service.Therapies()))
	return Model{service: service, input: ti, viewport: vp, topN: topN, timeout: timeout, status: status}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + severity
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentGroup())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			m.severity = (m.severity + 1) % len(severities)
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			sev := severities[m.severity]
			if q == "" && sev != domain.SeveritySometimes {
				return m, nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
			resp, err := m.service.Recommend(ctx, domain.RecommendRequest{Symptoms: q, Severity: sev, TopN: m.topN})
			cancel()
			if err != nil {
				m.status = "Error: " + err.Error()
				m.response = domain.RecommendResponse{}
			} else {
				m.response = resp
				m.cursor = 0
				m.lastQuery = q
				m.status = statusFor(resp, q)
			}
			m.viewport.SetContent(m.renderCurrentGroup())
			return m, nil
		case "down":
			if n := len(m.response.Recommendations); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderCurrentGroup())
				return m, nil
			}
		case "up":
			if n := len(m.response.Recommendations); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderCurrentGroup())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func statusFor(resp domain.RecommendResponse, q string) string {
	if resp.Action == domain.ActionSelfMonitor {
		return "Self-monitor advised"
	}
	return fmt.Sprintf("%d therapies for %q", len(resp.Recommendations), q)
}

// View renders the TUI layout and current therapy group.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Panchakarma Recommender")
	sev := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("severity: " + string(severities[m.severity]))
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + sev + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentGroup() string {
	if m.response.Action == domain.ActionSelfMonitor {
		return m.response.Suggestion
	}
	if len(m.response.Recommendations) == 0 {
		if m.lastQuery != "" {
			return "No matching therapy."
		}
		return "No results yet."
	}
	g := m.response.Recommendations[m.cursor]
	title := fmt.Sprintf("Therapy %d/%d  %s", m.cursor+1, len(m.response.Recommendations), highlightStyle.Render(g.Therapy))
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	if len(g.Doctors) == 0 {
		b.WriteString("No practitioners listed.")
	}
	for _, d := range g.Doctors {
		b.WriteString(renderDoctor(d))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDoctor(d domain.DoctorProfile) string {
	line := "• " + d.Name
	var extra []string
	for _, v := range []string{d.Specialization, d.Hospital, d.Experience, d.Phone, d.Email} {
		if v != "" {
			extra = append(extra, v)
		}
	}
	if len(extra) > 0 {
		line += dimStyle.Render("  " + strings.Join(extra, " · "))
	}
	return line
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
