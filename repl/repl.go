// Package repl implements the Read-Eval-Print Loop for the Koala
// programming language.
//
// The REPL provides an interactive interface for users to enter Koala
// code, have it compiled and run on the bytecode virtual machine, and see
// the results immediately. It uses the Charm libraries (Bubbletea, Bubbles,
// and Lipgloss) to create a modern, user-friendly terminal interface with
// features like syntax highlighting and command history.
//
// Each entered snippet is compiled as its own module (named "replN" for the
// Nth entry) and run against a single persistent [vm.State], so top-level
// vars/funcs/classes declared in one entry stay loaded for the next.
package repl

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fangguanya/koala-lang/compiler"
	"github.com/fangguanya/koala-lang/lexer"
	"github.com/fangguanya/koala-lang/parser"
	"github.com/fangguanya/koala-lang/token"
	"github.com/fangguanya/koala-lang/vm"
)

const (
	// Prompt is the default prompt for the REPL.
	Prompt = ">> "

	// ContPrompt is the continuation prompt used in multiline input mode.
	ContPrompt = ".. "
)

// Options contains configuration options for the REPL.
type Options struct {
	NoColor bool // Disable syntax highlighting and colored output
	Debug   bool // Enable debug mode with more verbose output
}

// Start initializes and runs the REPL with the given username and options.
func Start(username string, options Options) {
	p := tea.NewProgram(initialModel(username, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	parseErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	runtimeErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF8700")).
				Bold(true)

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	identifierStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2"))

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	operatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))
)

// ErrorType represents the type of error that occurred.
type ErrorType int

const (
	NoError ErrorType = iota
	ParseError
	RuntimeError
)

// evalResultMsg is the async result of compiling+running one entry.
type evalResultMsg struct {
	output    string
	isError   bool
	errorType ErrorType
	elapsed   time.Duration
}

type model struct {
	textInput       textinput.Model
	history         []historyEntry
	state           *vm.State
	entryCount      int
	username        string
	evaluating      bool
	currentInput    string
	multilineBuffer string
	isMultiline     bool
	spinner         spinner.Model
	options         Options
}

func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

type historyEntry struct {
	input          string
	output         string
	isError        bool
	errorType      ErrorType
	evaluationTime time.Duration
}

func initialModel(username string, options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter Koala code"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		textInput:  ti,
		history:    []historyEntry{},
		state:      vm.NewState(),
		username:   username,
		evaluating: false,
		spinner:    s,
		options:    options,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced checks if brackets, braces, and parentheses are balanced.
func isBalanced(input string) bool {
	var stack []rune

	for _, char := range input {
		switch char {
		case '(', '{', '[':
			stack = append(stack, char)
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return false
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}

	return len(stack) == 0
}

// evalCmd compiles input as its own module and runs its __init__ (and
// main(), if declared) against the shared vm.State.
func evalCmd(input string, state *vm.State, pkgName string, debug bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()

		l := lexer.New(input)
		p := parser.New(l)
		program := p.ParseProgram()

		var output string
		isError := false
		errorType := NoError

		if len(p.Errors()) != 0 {
			isError = true
			errorType = ParseError
			output = formatParseErrors(p.Errors())
		} else {
			img, errs := compiler.Compile(pkgName, program)
			if len(errs) != 0 {
				isError = true
				errorType = ParseError
				output = formatParseErrors(errs)
			} else {
				state.AddImage(img)
				mod, err := state.LoadModule(pkgName)
				if err != nil {
					isError = true
					errorType = RuntimeError
					output = formatRuntimeError(err.Error())
				} else if fn, ok := mod.Funcs["main"]; ok {
					r := vm.NewRoutine(state)
					results, callErr := r.Call(fn, mod, nil)
					if callErr == nil {
						callErr = state.DrainScheduled()
					}
					if callErr != nil {
						isError = true
						errorType = RuntimeError
						output = formatRuntimeError(callErr.Error())
					} else if len(results) > 0 {
						output = results[len(results)-1].Inspect()
					} else {
						output = "nil"
					}
				} else {
					output = "ok"
				}
			}
		}

		elapsed := time.Since(start)
		if debug {
			fmt.Printf("DEBUG: module %q evaluated in %v\n", pkgName, elapsed)
		}

		return evalResultMsg{output: output, isError: isError, errorType: errorType, elapsed: elapsed}
	}
}

func (m model) formatError(errorStyle *lipgloss.Style, entry *historyEntry, s *strings.Builder) {
	parts := strings.Split(entry.output, "\nTips:")
	if len(parts) > 1 {
		if m.options.NoColor {
			s.WriteString(parts[0])
			s.WriteString("\n")
			s.WriteString("Tips:" + parts[1])
		} else {
			s.WriteString(errorStyle.Render(parts[0]))
			s.WriteString("\n")
			s.WriteString(parts[1])
		}
	} else {
		if m.options.NoColor {
			s.WriteString(entry.output)
		} else {
			s.WriteString(errorStyle.Render(entry.output))
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false
		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			isError:        msg.isError,
			errorType:      msg.errorType,
			evaluationTime: msg.elapsed,
		})
		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}
					return m.startEval(m.multilineBuffer)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")
				if isBalanced(m.multilineBuffer) {
					return m.startEval(m.multilineBuffer)
				}
				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			return m.startEval(input)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}

	if m.evaluating {
		return m, m.spinner.Tick
	}

	return m, cmd
}

// startEval resets the input/multiline state and kicks off evalCmd for
// buffer, naming it the next "replN" module.
func (m model) startEval(buffer string) (tea.Model, tea.Cmd) {
	m.evaluating = true
	m.currentInput = buffer
	m.textInput.SetValue("")
	m.isMultiline = false
	m.multilineBuffer = ""
	m.entryCount++
	pkgName := fmt.Sprintf("repl%d", m.entryCount)
	return m, evalCmd(buffer, m.state, pkgName, m.options.Debug)
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, " Koala Language REPL "))
	s.WriteString("\n")

	if m.username != "" {
		s.WriteString(fmt.Sprintf("\nHello %s! Feel free to type in commands\n", m.username))
	}
	s.WriteString("\n")

	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightCode(line))
			s.WriteString("\n")
		}

		if entry.isError {
			switch entry.errorType {
			case ParseError:
				m.formatError(&parseErrorStyle, &entry, &s)
			case RuntimeError:
				m.formatError(&runtimeErrorStyle, &entry, &s)
			default:
				s.WriteString(m.applyStyle(errorStyle, entry.output))
			}
		} else {
			s.WriteString(m.applyStyle(resultStyle, entry.output))
		}

		if entry.evaluationTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())
			s.WriteString(m.applyStyle(historyStyle, timeStr))
		}

		s.WriteString("\n\n")
	}

	if m.evaluating {
		s.WriteString(m.applyStyle(promptStyle, Prompt))
		s.WriteString(m.highlightCode(m.currentInput))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Evaluating...")
		s.WriteString("\n\n")
	}

	if m.isMultiline && !m.evaluating {
		s.WriteString(m.applyStyle(historyStyle, "Current multiline input:\n"))
		s.WriteString(m.highlightCode(m.multilineBuffer))
		s.WriteString("\n")
	}

	if !m.evaluating {
		if m.isMultiline {
			m.textInput.Prompt = m.applyStyle(promptStyle, ContPrompt)
		} else {
			m.textInput.Prompt = m.applyStyle(promptStyle, Prompt)
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Multiline mode: Enter empty line to evaluate or continue typing"
	} else {
		helpText += " | Multiline input supported for unbalanced brackets"
	}
	s.WriteString(m.applyStyle(historyStyle, helpText))

	return s.String()
}

func formatParseErrors(errors []string) string {
	var s strings.Builder
	s.WriteString("Errors:\n")
	for i, msg := range errors {
		s.WriteString(fmt.Sprintf("  %d. %s\n", i+1, msg))
	}
	s.WriteString("\nTips:\n")
	s.WriteString("  • Check for missing parentheses, braces, or semicolons\n")
	s.WriteString("  • Verify that all expressions are properly terminated\n")
	s.WriteString("  • Ensure variable names are valid identifiers\n")
	return s.String()
}

func formatRuntimeError(errorMsg string) string {
	var s strings.Builder
	s.WriteString("Runtime Error:\n")
	s.WriteString("  " + errorMsg + "\n")
	s.WriteString("\nTips:\n")
	switch {
	case strings.Contains(errorMsg, "no function"), strings.Contains(errorMsg, "no method"):
		s.WriteString("  • Check the name is defined before use and spelled correctly\n")
	case strings.Contains(errorMsg, "wrong number of arguments"):
		s.WriteString("  • Check the call has the correct number of arguments\n")
	case strings.Contains(errorMsg, "index"):
		s.WriteString("  • Verify array indices are within bounds\n")
	default:
		s.WriteString("  • Review your code logic\n")
	}
	return s.String()
}

// highlightCode applies syntax highlighting to Koala code for REPL display.
func (m model) highlightCode(code string) string {
	l := lexer.New(code)
	var s strings.Builder

	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	isKeyword := func(t token.Token) bool {
		switch t.Type {
		case token.Function, token.Var, token.Const, token.True, token.False, token.If, token.Else,
			token.Return, token.While, token.For, token.Range, token.Break, token.Continue,
			token.Class, token.Trait, token.Extends, token.With, token.Import, token.As,
			token.Self, token.Super, token.Nil, token.Go, token.Switch, token.Case, token.Default,
			token.Typealias:
			return true
		}
		return false
	}
	isOperator := func(t token.Token) bool {
		switch t.Type {
		case token.Assign, token.Plus, token.Minus, token.Bang, token.Asterisk, token.Slash, token.Percent,
			token.Lt, token.Gt, token.Lte, token.Gte, token.Eq, token.NotEq, token.AndAnd, token.OrOr, token.Tilde:
			return true
		}
		return false
	}
	isDelimiter := func(t token.Token) bool {
		switch t.Type {
		case token.Comma, token.Colon, token.Semicolon, token.Lparen, token.Rparen,
			token.Lbrace, token.Rbrace, token.Lbracket, token.Rbracket, token.Dot:
			return true
		}
		return false
	}

	for i, tok := range tokens {
		if tok.Type == token.EOF {
			continue
		}
		var next token.Token
		if i+1 < len(tokens) {
			next = tokens[i+1]
		}

		switch {
		case isKeyword(tok):
			s.WriteString(m.applyStyle(keywordStyle, tok.Literal))
		case tok.Type == token.Ident:
			s.WriteString(m.applyStyle(identifierStyle, tok.Literal))
		case tok.Type == token.Int || tok.Type == token.Float:
			s.WriteString(m.applyStyle(literalStyle, tok.Literal))
		case tok.Type == token.String:
			s.WriteString(m.applyStyle(stringStyle, "\""+tok.Literal+"\""))
		case isOperator(tok):
			s.WriteString(m.applyStyle(operatorStyle, tok.Literal))
		case isDelimiter(tok):
			s.WriteString(m.applyStyle(delimiterStyle, tok.Literal))
		default:
			s.WriteString(tok.Literal)
		}

		if !isDelimiter(next) && next.Type != token.EOF {
			s.WriteString(" ")
		}
	}

	return s.String()
}
