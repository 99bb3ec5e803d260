// Package tui implements the terminal booking client.  The Bubble Tea
// update loop is the single-threaded scheduler the booking coordinator
// expects: fetches run as commands, completions come back as messages
// tagged with the epoch they were issued under, and the coordinator
// decides whether a completion still applies.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iliyamo/open-day-registration/internal/booking"
	"github.com/iliyamo/open-day-registration/internal/client"
	"github.com/iliyamo/open-day-registration/internal/registration"
)

type appState int

const (
	stateLoadingSchedule appState = iota
	stateSelectSession
	stateForm
	stateSubmitting
	stateDone
	stateError
)

const seatGridColumns = 5

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	optionStyle   = lipgloss.NewStyle().Padding(0, 1)
	takenStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 1)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true).Padding(0, 1)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
)

type scheduleMsg struct {
	schedule client.Schedule
	err      error
}

type availabilityMsg struct {
	epoch uint64
	seats []int
	count int
	err   error
}

type registerMsg struct {
	err error
}

type appModel struct {
	api *client.Client
	co  *booking.Coordinator

	state  appState
	err    error
	notice string

	cursor int // seat the selection cursor is on, 1-based

	emailInput textinput.Model
	phoneInput textinput.Model
	focusPhone bool

	spinner spinner.Model
}

// New builds the TUI model.  baseURL may be empty for a local server.
func New(baseURL string) tea.Model {
	m := appModel{
		api:    client.New(baseURL, nil),
		co:     booking.New(nil),
		state:  stateLoadingSchedule,
		cursor: 1,
	}

	m.emailInput = textinput.New()
	m.emailInput.Placeholder = "email"
	m.emailInput.CharLimit = 100
	m.phoneInput = textinput.New()
	m.phoneInput.Placeholder = "phone"
	m.phoneInput.CharLimit = 30

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	m.spinner = sp

	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.fetchScheduleCmd(), m.spinner.Tick)
}

func (m appModel) fetchScheduleCmd() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		sched, err := api.FetchSchedule(ctx)
		return scheduleMsg{schedule: sched, err: err}
	}
}

func (m appModel) fetchAvailabilityCmd(target booking.Target, epoch uint64) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		seats, count, err := api.FetchTakenSeats(ctx, target.Date, target.Time)
		return availabilityMsg{epoch: epoch, seats: seats, count: count, err: err}
	}
}

func (m appModel) registerCmd(reg registration.Registration) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return registerMsg{err: api.Register(ctx, reg)}
	}
}

// afterSelection emits the availability fetch when a coordinator call
// moved it to a new target.  The coordinator bumps its epoch exactly once
// per target entry, so comparing epochs tells us whether a fetch is due.
func (m appModel) afterSelection(before uint64) (appModel, tea.Cmd) {
	if m.co.Epoch() == before {
		return m, nil
	}
	m.cursor = 1
	return m, tea.Batch(m.fetchAvailabilityCmd(m.co.Target(), m.co.Epoch()), m.spinner.Tick)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == stateLoadingSchedule || m.state == stateSubmitting || m.co.Phase() == booking.PhaseFetching {
			return m, cmd
		}
		return m, nil

	case scheduleMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		before := m.co.Epoch()
		m.co.LoadSchedule(msg.schedule.Schedule, msg.schedule.TotalSeats)
		if m.co.Phase() == booking.PhaseNoSession {
			m.err = fmt.Errorf("no open sessions right now")
			m.state = stateError
			return m, nil
		}
		m.state = stateSelectSession
		return m.afterSelection(before)

	case availabilityMsg:
		applied := m.co.ResolveAvailability(msg.epoch, booking.Availability{TakenSeats: msg.seats, Count: msg.count}, msg.err)
		if applied && msg.err != nil {
			m.notice = "could not load seat availability, pick a time to retry"
		}
		return m, nil

	case registerMsg:
		// Whatever the outcome, re-query availability so the grid never
		// shows a seat as free on the word of a stale fetch.
		before := m.co.Epoch()
		m.co.Refresh()
		_, refetch := m.afterSelection(before)
		if msg.err != nil {
			m.state = stateSelectSession
			if client.IsSeatConflict(msg.err) {
				m.notice = "that seat was just taken, pick another one"
			} else {
				m.notice = msg.err.Error()
			}
			return m, refetch
		}
		m.state = stateDone
		return m, refetch
	}
	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.state {
	case stateSelectSession:
		return m.handleSessionKey(key)

	case stateForm:
		return m.handleFormKey(msg)

	case stateDone, stateError:
		if key == "q" || key == "esc" || key == "enter" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m appModel) handleSessionKey(key string) (tea.Model, tea.Cmd) {
	before := m.co.Epoch()
	switch key {
	case "q", "esc":
		return m, tea.Quit
	case "d":
		m.co.SelectDate(nextOption(m.co.Schedule().Dates(), m.co.Target().Date, 1))
		return m.afterSelection(before)
	case "D":
		m.co.SelectDate(nextOption(m.co.Schedule().Dates(), m.co.Target().Date, -1))
		return m.afterSelection(before)
	case "t":
		times := m.co.Schedule().Times(m.co.Target().Date)
		m.co.SelectTime(nextOption(times, m.co.Target().Time, 1))
		return m.afterSelection(before)
	case "T":
		times := m.co.Schedule().Times(m.co.Target().Date)
		m.co.SelectTime(nextOption(times, m.co.Target().Time, -1))
		return m.afterSelection(before)
	case "r":
		m.co.Refresh()
		return m.afterSelection(before)
	case "left":
		m.cursor = clampSeat(m.cursor - 1)
	case "right":
		m.cursor = clampSeat(m.cursor + 1)
	case "up":
		m.cursor = clampSeat(m.cursor - seatGridColumns)
	case "down":
		m.cursor = clampSeat(m.cursor + seatGridColumns)
	case "enter", " ":
		if m.co.SelectSeat(m.cursor) {
			m.notice = ""
			m.state = stateForm
			m.focusPhone = false
			return m, m.emailInput.Focus()
		}
		// taken seat or availability not ready: no-op
	}
	return m, nil
}

func (m appModel) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.co.ClearSeat()
		m.state = stateSelectSession
		m.emailInput.Blur()
		m.phoneInput.Blur()
		return m, nil
	case "tab", "shift+tab":
		m.focusPhone = !m.focusPhone
		if m.focusPhone {
			m.emailInput.Blur()
			return m, m.phoneInput.Focus()
		}
		m.phoneInput.Blur()
		return m, m.emailInput.Focus()
	case "enter":
		reg := registration.Registration{
			Date:  m.co.Target().Date,
			Time:  m.co.Target().Time,
			Seat:  m.co.SelectedSeat(),
			Email: strings.TrimSpace(m.emailInput.Value()),
			Phone: strings.TrimSpace(m.phoneInput.Value()),
		}
		if err := reg.Validate(); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.notice = ""
		m.state = stateSubmitting
		return m, tea.Batch(m.registerCmd(reg), m.spinner.Tick)
	}
	var cmd tea.Cmd
	if m.focusPhone {
		m.phoneInput, cmd = m.phoneInput.Update(msg)
	} else {
		m.emailInput, cmd = m.emailInput.Update(msg)
	}
	return m, cmd
}

func (m appModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Open day registration"))
	b.WriteString("\n\n")

	switch m.state {
	case stateLoadingSchedule:
		fmt.Fprintf(&b, "%s loading schedule...\n", m.spinner.View())

	case stateSelectSession, stateForm, stateSubmitting:
		m.renderSession(&b)

	case stateDone:
		b.WriteString("Registration confirmed, see you there!\n\n")
		b.WriteString(faintStyle.Render("press enter to exit"))
		b.WriteString("\n")

	case stateError:
		b.WriteString(errStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(faintStyle.Render("press q to exit"))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.notice))
		b.WriteString("\n")
	}
	return b.String()
}

func (m appModel) renderSession(b *strings.Builder) {
	target := m.co.Target()

	b.WriteString("Date:  ")
	for _, d := range m.co.Schedule().Dates() {
		if d == target.Date {
			b.WriteString(selectedStyle.Render(d))
		} else {
			b.WriteString(optionStyle.Render(d))
		}
	}
	b.WriteString("\nTime:  ")
	for _, t := range m.co.Schedule().Times(target.Date) {
		if t == target.Time {
			b.WriteString(selectedStyle.Render(t))
		} else {
			b.WriteString(optionStyle.Render(t))
		}
	}
	fmt.Fprintf(b, "\n\nSeats (%d taken of %d per session, %d seats total):\n",
		m.co.TakenCount(), booking.SeatCapacity, m.co.TotalSeats())

	switch m.co.Phase() {
	case booking.PhaseFetching:
		fmt.Fprintf(b, "\n%s checking availability...\n", m.spinner.View())
	case booking.PhaseFailed:
		b.WriteString("\n")
		b.WriteString(errStyle.Render("availability unknown, press r to retry"))
		b.WriteString("\n")
	default:
		m.renderSeatGrid(b)
	}

	switch m.state {
	case stateForm:
		fmt.Fprintf(b, "\nSeat %d on %s at %s\n", m.co.SelectedSeat(), target.Date, target.Time)
		fmt.Fprintf(b, "  %s\n  %s\n", m.emailInput.View(), m.phoneInput.View())
		b.WriteString(faintStyle.Render("tab switches fields, enter submits, esc goes back"))
		b.WriteString("\n")
	case stateSubmitting:
		fmt.Fprintf(b, "\n%s submitting registration...\n", m.spinner.View())
	default:
		b.WriteString("\n")
		b.WriteString(faintStyle.Render("d/t switch date/time, arrows move, enter picks a seat, q quits"))
		b.WriteString("\n")
	}
}

func (m appModel) renderSeatGrid(b *strings.Builder) {
	for seat := 1; seat <= booking.SeatCapacity; seat++ {
		label := fmt.Sprintf("%2d", seat)
		switch {
		case seat == m.cursor:
			b.WriteString(cursorStyle.Render(label))
		case m.co.SeatTaken(seat):
			b.WriteString(takenStyle.Render(label))
		case seat == m.co.SelectedSeat():
			b.WriteString(selectedStyle.Render(label))
		default:
			b.WriteString(optionStyle.Render(label))
		}
		if seat%seatGridColumns == 0 {
			b.WriteString("\n")
		}
	}
}

// nextOption returns the option before or after current, wrapping around.
// Unknown currents land on the first option.
func nextOption(options []string, current string, step int) string {
	if len(options) == 0 {
		return current
	}
	idx := 0
	for i, o := range options {
		if o == current {
			idx = i
			break
		}
	}
	idx = (idx + step + len(options)) % len(options)
	return options[idx]
}

func clampSeat(n int) int {
	if n < 1 {
		return 1
	}
	if n > booking.SeatCapacity {
		return booking.SeatCapacity
	}
	return n
}
