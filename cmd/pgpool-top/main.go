package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jackc/pgx/v5"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#00AFFF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	bansView view = iota
	usersView
	statsView
	configView
	viewCount
)

var viewNames = [viewCount]string{"Bans", "Users", "Stats", "Config"}

// queries issued per tab, in tab order
var viewQueries = [viewCount]string{"SHOW BANS", "SHOW USERS", "SHOW STATS", "SHOW CONFIG"}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// resultTable is one fetched admin result set
type resultTable struct {
	columns []string
	rows    [][]string
}

type refreshMsg struct {
	results [viewCount]resultTable
	err     error
}

type tickMsg time.Time

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	addr        string
	pool        string
	interval    time.Duration
	currentView view
	tables      [viewCount]table.Model
	keys        keyMap
	width       int
	height      int
	err         error
	lastUpdate  time.Time
}

func initialModel(addr, pool string, interval time.Duration) model {
	m := model{
		addr:     addr,
		pool:     pool,
		interval: interval,
		keys:     keys,
	}

	for i := range m.tables {
		t := table.New(table.WithFocused(true), table.WithHeight(15))
		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			BorderBottom(true).
			Bold(true)
		s.Selected = s.Selected.
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#00AFFF")).
			Bold(false)
		t.SetStyles(s)
		m.tables[i] = t
	}

	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchCmd(m.addr, m.pool), tickCmd(m.interval))
}

// fetchCmd pulls every tab's result set over one short-lived admin connection
func fetchCmd(addr, pool string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var msg refreshMsg

		conn, err := connectAdmin(ctx, addr, pool)
		if err != nil {
			msg.err = err
			return msg
		}
		defer conn.Close(ctx)

		for v := bansView; v < viewCount; v++ {
			result, err := fetchResult(ctx, conn, viewQueries[v])
			if err != nil {
				msg.err = err
				return msg
			}
			msg.results[v] = result
		}

		return msg
	}
}

// connectAdmin dials the admin port using the simple query protocol,
// which is the only protocol the admin surface speaks
func connectAdmin(ctx context.Context, addr, pool string) (*pgx.Conn, error) {
	cfg, err := pgx.ParseConfig(fmt.Sprintf("postgres://admin@%s/%s?sslmode=disable", addr, pool))
	if err != nil {
		return nil, err
	}
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	return pgx.ConnectConfig(ctx, cfg)
}

func fetchResult(ctx context.Context, conn *pgx.Conn, query string) (resultTable, error) {
	var result resultTable

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return result, err
	}
	defer rows.Close()

	for _, fd := range rows.FieldDescriptions() {
		result.columns = append(result.columns, string(fd.Name))
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return result, err
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = fmt.Sprint(v)
		}
		result.rows = append(result.rows, row)
	}

	return result, rows.Err()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.currentView = (m.currentView + viewCount - 1) % viewCount
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, fetchCmd(m.addr, m.pool)
		}

	case tickMsg:
		return m, tea.Batch(fetchCmd(m.addr, m.pool), tickCmd(m.interval))

	case refreshMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.lastUpdate = time.Now()
		for v := bansView; v < viewCount; v++ {
			m.setTable(v, msg.results[v])
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.tables[m.currentView], cmd = m.tables[m.currentView].Update(msg)
	return m, cmd
}

// setTable replaces one tab's columns and rows with a fetched result
func (m *model) setTable(v view, result resultTable) {
	columns := make([]table.Column, len(result.columns))
	for i, name := range result.columns {
		width := len(name) + 2
		for _, row := range result.rows {
			if len(row[i]) > width {
				width = len(row[i])
			}
		}
		if width > 40 {
			width = 40
		}
		columns[i] = table.Column{Title: name, Width: width}
	}

	rows := make([]table.Row, len(result.rows))
	for i, row := range result.rows {
		rows[i] = table.Row(row)
	}

	// Clear rows before swapping columns; the table widget panics on
	// rows wider than its column set
	m.tables[v].SetRows(nil)
	m.tables[v].SetColumns(columns)
	m.tables[v].SetRows(rows)
}

func (m model) View() string {
	var tabs string
	for v := bansView; v < viewCount; v++ {
		style := inactiveTabStyle
		if v == m.currentView {
			style = activeTabStyle
		}
		tabs += style.Render(viewNames[v])
	}

	header := titleStyle.Render(fmt.Sprintf("cluso-pgpool :: %s :: pool %s", m.addr, m.pool))

	var body string
	if m.err != nil {
		body = errorStyle.Render(fmt.Sprintf("connection error: %v", m.err))
	} else {
		body = m.tables[m.currentView].View()
	}

	status := ""
	if !m.lastUpdate.IsZero() {
		status = fmt.Sprintf("updated %s", m.lastUpdate.Format("15:04:05"))
	}

	help := helpStyle.Render("tab: switch view • r: refresh • q: quit  " + status)

	return header + "\n" + contentStyle.Render(tabs) + "\n" + contentStyle.Render(body) + "\n" + help
}

func main() {
	addr := flag.String("addr", "127.0.0.1:6432", "Admin address of the pooler")
	pool := flag.String("pool", "", "Pool context (default: the pooler's default pool)")
	interval := flag.Duration("interval", 2*time.Second, "Refresh interval")
	flag.Parse()

	poolName := *pool
	if poolName == "" {
		poolName = "default"
	}

	p := tea.NewProgram(initialModel(*addr, poolName, *interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "pgpool-top: %v\n", err)
		os.Exit(1)
	}
}
