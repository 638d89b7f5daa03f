package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/pipeline"
	"github.com/bhackerb/PeakForm-C/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	analysisMaxTokens = 4096
	templateMaxTokens = 8000
)

var (
	ErrWrongPhase  = errors.New("wrong phase")
	ErrEmptyReply  = errors.New("empty completion")
	ErrNoQuestion  = errors.New("empty question")
	ErrNoCompleter = errors.New("no completer configured")
)

// Observer is told about every completion a session or chat makes.
type Observer func(phase string, took time.Duration, err error)

type Option func(*options)

type options struct {
	observer Observer
}

func WithObserver(o Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// Session walks one planning conversation from the landing page to the
// finished weekly template. Each phase makes exactly one completion; a
// failed completion leaves the session in the phase it was in.
// A Session is not safe for concurrent use.
type Session struct {
	completer Completer
	result    *pipeline.Result
	opts      options

	phase        Phase
	interview    Interview
	analysisText string
	proposalText string
	templateText string
}

func NewSession(completer Completer, result *pipeline.Result, opts ...Option) *Session {
	s := &Session{
		completer: completer,
		result:    result,
		interview: NewInterview(),
	}
	for _, o := range opts {
		o(&s.opts)
	}
	return s
}

func (s *Session) Phase() Phase {
	return s.phase
}

func (s *Session) Interview() Interview {
	return s.interview
}

func (s *Session) AnalysisText() string {
	return s.analysisText
}

func (s *Session) ProposalText() string {
	return s.proposalText
}

func (s *Session) TemplateText() string {
	return s.templateText
}

// Start leaves the landing page for the interview.
func (s *Session) Start() error {
	if err := s.expect(PhaseLanding); err != nil {
		return err
	}
	s.phase = PhaseInterview
	return nil
}

// SubmitInterview validates iv and requests the performance analysis.
func (s *Session) SubmitInterview(ctx context.Context, iv Interview) (string, error) {
	if err := s.expect(PhaseInterview); err != nil {
		return "", err
	}
	if err := iv.Validate(); err != nil {
		return "", err
	}

	text, err := s.complete(ctx, PhaseAnalysis, AnalysisPrompt(iv, s.result), analysisMaxTokens)
	if err != nil {
		return "", err
	}

	s.interview = iv
	s.analysisText = text
	s.phase = PhaseAnalysis
	return text, nil
}

// Propose requests the strategy proposal for the accepted analysis.
func (s *Session) Propose(ctx context.Context) (string, error) {
	if err := s.expect(PhaseAnalysis); err != nil {
		return "", err
	}

	text, err := s.complete(ctx, PhaseProposal, ProposalPrompt(s.analysisText, s.interview), analysisMaxTokens)
	if err != nil {
		return "", err
	}

	s.proposalText = text
	s.phase = PhaseProposal
	return text, nil
}

// Approve accepts the proposal and requests the weekly template.
func (s *Session) Approve(ctx context.Context, useNewMeals bool) (string, error) {
	if err := s.expect(PhaseProposal); err != nil {
		return "", err
	}

	iv := s.interview
	iv.UseNewMeals = useNewMeals
	text, err := s.complete(ctx, PhaseTemplate, TemplatePrompt(s.proposalText, iv), templateMaxTokens)
	if err != nil {
		return "", err
	}

	s.interview = iv
	s.templateText = text
	s.phase = PhaseTemplate
	return text, nil
}

// Back returns to the interview from the analysis or proposal, keeping the
// previous answers.
func (s *Session) Back() error {
	if s.phase != PhaseAnalysis && s.phase != PhaseProposal {
		return fmt.Errorf("%w: cannot go back from %s", ErrWrongPhase, s.phase)
	}
	s.phase = PhaseInterview
	s.analysisText = ""
	s.proposalText = ""
	return nil
}

// Restart drops everything and returns to the landing page.
func (s *Session) Restart() {
	s.phase = PhaseLanding
	s.interview = NewInterview()
	s.analysisText = ""
	s.proposalText = ""
	s.templateText = ""
}

func (s *Session) expect(p Phase) error {
	if s.phase != p {
		return fmt.Errorf("%w: in %s, need %s", ErrWrongPhase, s.phase, p)
	}
	return nil
}

func (s *Session) complete(ctx context.Context, phase Phase, prompt string, maxTokens int) (string, error) {
	return completeOnce(ctx, s.completer, s.opts, phase.String(), Request{
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens: maxTokens,
	})
}

// completeOnce makes a single completion call and never retries.
func completeOnce(ctx context.Context, c Completer, opts options, phase string, req Request) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "coach.complete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("phase", phase))

	if c == nil {
		return "", ErrNoCompleter
	}

	start := time.Now()
	text, err := c.Complete(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyReply
	}
	if opts.observer != nil {
		opts.observer(phase, time.Since(start), err)
	}
	if err != nil {
		log.Errorf("coach %s completion: %s", phase, err)
		return "", fmt.Errorf("%s completion: %w", phase, err)
	}

	log.Debugf("coach %s completion: %d chars in %s", phase, len(text), time.Since(start))
	return text, nil
}
