package client

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lox/turtlerace/internal/game"
	"github.com/lox/turtlerace/internal/protocol"
	"github.com/muesli/termenv"
)

var turtleColors = map[game.Turtle]lipgloss.Color{
	game.Green:  lipgloss.Color("#2E8B57"),
	game.Purple: lipgloss.Color("#8A2BE2"),
	game.Blue:   lipgloss.Color("#1E90FF"),
	game.Red:    lipgloss.Color("#DC143C"),
	game.Yellow: lipgloss.Color("#FFD700"),
}

// Styles holds the lipgloss styles used when printing events
type Styles struct {
	Label   lipgloss.Style
	Turtle  map[game.Turtle]lipgloss.Style
	Any     lipgloss.Style
	Empty   lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
	Turn    lipgloss.Style
}

// Renderer formats server events for a terminal.
type Renderer struct {
	styles Styles
	self   string
}

// NewRenderer builds styles for w. noColor forces plain ASCII output.
func NewRenderer(w io.Writer, self string, noColor bool) *Renderer {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}

	styles := Styles{
		Label:   r.NewStyle().Foreground(lipgloss.Color("#626262")).Width(8),
		Turtle:  make(map[game.Turtle]lipgloss.Style, len(turtleColors)),
		Any:     r.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Bold(true),
		Empty:   r.NewStyle().Foreground(lipgloss.Color("#444444")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		Info:    r.NewStyle().Foreground(lipgloss.Color("#96CEB4")),
		Success: r.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
		Turn:    r.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1),
	}
	for t, color := range turtleColors {
		styles.Turtle[t] = r.NewStyle().Foreground(color).Bold(true)
	}
	return &Renderer{styles: styles, self: self}
}

func (r *Renderer) turtle(t game.Turtle) string {
	if style, ok := r.styles.Turtle[t]; ok {
		return style.Render(string(t))
	}
	return string(t)
}

// Card renders a card as its text form in the turtle's colour
func (r *Renderer) Card(c game.Card) string {
	if c.Effect.Any {
		return r.styles.Any.Render(c.Effect.String())
	}
	return r.turtle(c.Effect.Turtle) + string(c.Effect.Move)
}

// Board renders one line per compartment, stacks listed bottom to top.
func (r *Renderer) Board(b game.Board) string {
	var sb strings.Builder
	last := b.Compartments() - 1
	for c := range b.Compartments() {
		label := fmt.Sprintf("%d", c)
		switch c {
		case 0:
			label = "start"
		case last:
			label = "finish"
		}
		sb.WriteString(r.styles.Label.Render(label))

		stack := b.Compartment(c)
		if len(stack) == 0 {
			sb.WriteString(r.styles.Empty.Render("."))
		}
		for i, t := range stack {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(r.turtle(t))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Hand renders cards with the index to pass to play.
func (r *Renderer) Hand(cards []game.Card) string {
	if len(cards) == 0 {
		return r.styles.Empty.Render("(no cards)")
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = fmt.Sprintf("%d:%s", i, r.Card(c))
	}
	return strings.Join(parts, "  ")
}

func (r *Renderer) turn(name string) string {
	if name == r.self {
		return r.styles.Turn.Render("your turn")
	}
	return r.styles.Info.Render(name + "'s turn")
}

// Event renders a server message for display.
func (r *Renderer) Event(msg protocol.ServerMessage) string {
	switch m := msg.(type) {
	case protocol.Error:
		return r.styles.Error.Render("error: " + m.Reason)

	case protocol.Waiting:
		return r.styles.Info.Render("waiting: " + strings.Join(m.Names, ", "))

	case protocol.Joined:
		return r.styles.Info.Render(m.Name + " joined")

	case protocol.Reconnected:
		return r.styles.Info.Render(m.Name + " reconnected")

	case protocol.Starting:
		return r.styles.Success.Render("game starting")

	case protocol.Started:
		var sb strings.Builder
		sb.WriteString(r.Board(m.Board))
		fmt.Fprintf(&sb, "you are %s, racing %s\n", m.Player.Name, r.turtle(m.Player.Turtle))
		if m.Played != nil {
			fmt.Fprintf(&sb, "last played: %s\n", r.Card(*m.Played))
		}
		fmt.Fprintf(&sb, "hand: %s\n", r.Hand(m.Player.Cards))
		sb.WriteString(r.turn(m.Turn))
		return sb.String()

	case protocol.Cards:
		return "hand: " + r.Hand(m.Hand)

	case protocol.Played:
		return fmt.Sprintf("played %s\n%s%s", r.Card(m.Card), r.Board(m.Board), r.turn(m.Turn))

	case protocol.Done:
		var sb strings.Builder
		sb.WriteString(r.Board(m.Board))
		sb.WriteString(r.styles.Success.Render("race over"))
		for i, w := range m.Winners {
			owner := w.Name
			if owner == "" {
				owner = "nobody"
			}
			fmt.Fprintf(&sb, "\n%d. %s (%s)", i+1, r.turtle(w.Turtle), owner)
		}
		return sb.String()

	default:
		return fmt.Sprintf("%v", msg)
	}
}
