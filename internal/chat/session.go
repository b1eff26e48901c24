// Package chat implements the conversational surface: prompt in,
// formatted analysis out.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	apperrors "upstox-analyst/internal/errors"
	"upstox-analyst/internal/intent"
	"upstox-analyst/internal/logging"
	"upstox-analyst/internal/models"
	"upstox-analyst/internal/store"
	"upstox-analyst/pkg/utils"
)

// Parser turns free text into a parsed request. Satisfied by
// *intent.Matcher.
type Parser interface {
	Parse(prompt string) intent.ParsedRequest
}

// Runner executes a parsed request. Satisfied by *analysis.Dispatcher.
type Runner interface {
	Dispatch(ctx context.Context, req intent.ParsedRequest) models.AnalysisResult
}

// Journal records query outcomes. Satisfied by store.DataStore; may be
// nil to disable journaling.
type Journal interface {
	LogQuery(ctx context.Context, record store.QueryRecord) error
}

// Session drives the prompt pipeline for both the REPL and one-shot
// queries.
type Session struct {
	parser  Parser
	runner  Runner
	journal Journal
	logger  zerolog.Logger
	out     io.Writer
	now     func() time.Time
}

// NewSession wires a chat session. journal may be nil.
func NewSession(parser Parser, runner Runner, journal Journal, logger zerolog.Logger, out io.Writer) *Session {
	return &Session{
		parser:  parser,
		runner:  runner,
		journal: journal,
		logger:  logger,
		out:     out,
		now:     time.Now,
	}
}

// Ask runs one prompt through parse, dispatch, and render, returning the
// text to show the user.
func (s *Session) Ask(ctx context.Context, prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}

	req := s.parser.Parse(prompt)
	logging.LogQuery(s.logger, prompt, string(req.Intent), req.Params.Symbol)

	if !req.Understood() {
		s.record(ctx, req, false, apperrors.ErrNotUnderstood.Error())
		return notUnderstoodText()
	}

	// Symbol parameters must resolve to exactly one instrument before any
	// market fetch: zero candidates halts with not-found, several with the
	// disambiguation list.
	if req.Params.Symbol != "" && len(req.Matches) == 0 {
		s.record(ctx, req, false, apperrors.ErrSymbolNotFound.Error())
		return notFoundText(req.Params.Symbol)
	}
	if req.Params.Symbol != "" && len(req.Matches) > 1 {
		s.record(ctx, req, false, apperrors.ErrAmbiguousSymbol.Error())
		return ambiguityText(req.Params.Symbol, req.Matches)
	}
	if req.Params.Symbol2 != "" && len(req.Matches2) == 0 {
		s.record(ctx, req, false, apperrors.ErrSymbolNotFound.Error())
		return notFoundText(req.Params.Symbol2)
	}
	if req.Params.Symbol2 != "" && len(req.Matches2) > 1 {
		s.record(ctx, req, false, apperrors.ErrAmbiguousSymbol.Error())
		return ambiguityText(req.Params.Symbol2, req.Matches2)
	}

	result := s.runner.Dispatch(ctx, req)
	s.record(ctx, req, result.Success, result.Error)
	return Render(req, result)
}

// Run is the interactive loop: banner, then one Ask per input line until
// EOF or an exit word.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	s.banner()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit", "q":
			fmt.Fprintln(s.out, "Bye.")
			return nil
		case "help", "examples":
			s.printExamples()
			continue
		}

		fmt.Fprintln(s.out, s.Ask(ctx, line))
	}
	return scanner.Err()
}

func (s *Session) banner() {
	status := utils.MarketStatusAt(s.now())
	fmt.Fprintf(s.out, "Upstox Analyst — market is %s\n", status)
	fmt.Fprintln(s.out, "Ask about any NSE stock in plain English. Type 'help' for examples, 'exit' to quit.")
}

func (s *Session) printExamples() {
	fmt.Fprintln(s.out, "Try prompts like:")
	for _, example := range intent.ExamplePrompts() {
		fmt.Fprintf(s.out, "  - %s\n", example)
	}
}

func (s *Session) record(ctx context.Context, req intent.ParsedRequest, success bool, errText string) {
	if s.journal == nil {
		return
	}
	err := s.journal.LogQuery(ctx, store.QueryRecord{
		Timestamp: s.now(),
		Prompt:    req.Original,
		Intent:    string(req.Intent),
		Symbol:    req.Params.Symbol,
		Success:   success,
		Error:     errText,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to journal query")
	}
}

func notUnderstoodText() string {
	var b strings.Builder
	b.WriteString("I could not understand that request.\n")
	b.WriteString("Try prompts like:\n")
	for _, example := range intent.ExamplePrompts() {
		fmt.Fprintf(&b, "  - %s\n", example)
	}
	return strings.TrimRight(b.String(), "\n")
}

func notFoundText(query string) string {
	return fmt.Sprintf("No matching instruments found for %q. Try the exact NSE trading symbol.", query)
}

func ambiguityText(query string, matches []models.Instrument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q matches multiple instruments. Please use a specific trading symbol:\n", query)
	for _, m := range matches {
		fmt.Fprintf(&b, "  Symbol: %s | Name: %s | Type: %s | Exchange: %s\n",
			m.Symbol, m.Name, m.Type, m.Exchange)
	}
	return strings.TrimRight(b.String(), "\n")
}
