package llm

import (
	"context"
	"strings"
	"time"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/metrics"
)

// Mode selects the answer-parsing rule of a call.
type Mode string

const (
	ModeNormal   Mode = "NORMAL"
	ModeRoot     Mode = "ROOT"
	ModeFalse    Mode = "FALSE"
	ModeRootType Mode = "ROOT_TYPE"
)

type modeKey struct{}

// WithMode tags ctx with the mode of the call being made.
func WithMode(ctx context.Context, m Mode) context.Context {
	return context.WithValue(ctx, modeKey{}, m)
}

// ModeFrom returns the mode attached by WithMode, if any.
func ModeFrom(ctx context.Context) (Mode, bool) {
	m, ok := ctx.Value(modeKey{}).(Mode)
	return m, ok
}

// Parse coerces a raw answer into an integer result.
//
// NORMAL and ROOT answers yield 1 when they contain "true", else 0.
// FALSE and ROOT_TYPE answers yield the first of 1, 2, 3 found, checked in
// that order, else 0.
func Parse(mode Mode, answer string) int {
	switch mode {
	case ModeNormal, ModeRoot:
		lower := strings.ToLower(answer)
		if strings.Contains(lower, "true") {
			return 1
		}
		return 0
	default:
		for _, d := range []string{"1", "2", "3"} {
			if strings.Contains(answer, d) {
				return int(d[0] - '0')
			}
		}
		return 0
	}
}

// Adapter performs single-shot calls with a fixed envelope.
type Adapter struct {
	client   Client
	envelope Envelope
	recorder metrics.Recorder
}

// NewAdapter returns an Adapter. A nil recorder disables metrics.
func NewAdapter(client Client, envelope Envelope, recorder metrics.Recorder) *Adapter {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Adapter{client: client, envelope: envelope, recorder: recorder}
}

// Call sends one request and parses the answer according to mode.
// Transport failures are returned as *ServiceError; other errors pass through.
func (a *Adapter) Call(ctx context.Context, system, user string, mode Mode) (int, error) {
	start := time.Now()
	answer, err := a.client.Chat(WithMode(ctx, mode), a.envelope.Request(system, user))
	elapsed := time.Since(start)
	if err != nil {
		outcome := "error"
		if IsServiceError(err) {
			outcome = "ai_service_error"
		}
		a.recorder.LLMCall(string(mode), outcome, elapsed)
		logging.LLMError("call mode=%s failed after %v: %v", mode, elapsed, err)
		return 0, err
	}

	result := Parse(mode, answer)
	a.recorder.LLMCall(string(mode), "ok", elapsed)
	logging.LLMDebug("call mode=%s answer=%q result=%d latency=%v", mode, answer, result, elapsed)
	return result, nil
}

// =============================================================================
// TAGGED RESULTS
// =============================================================================

// Verdict is the outcome of a NORMAL or ROOT call.
type Verdict int

const (
	Reject Verdict = iota
	Accept
)

// Diagnosis is the outcome of a FALSE call.
type Diagnosis int

const (
	DiagnosisUnknown Diagnosis = iota
	DiagnosisNotCause
	DiagnosisPositiveNeutral
	DiagnosisSimilarPrevious
)

// Category is the outcome of a ROOT_TYPE call.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryHarta
	CategoryTahta
	CategoryCinta
)

// Verdict issues a NORMAL (or ROOT) call and returns its tag.
func (a *Adapter) Verdict(ctx context.Context, system, user string, mode Mode) (Verdict, error) {
	n, err := a.Call(ctx, system, user, mode)
	if err != nil {
		return Reject, err
	}
	if n == 1 {
		return Accept, nil
	}
	return Reject, nil
}

// Diagnose issues a FALSE call.
func (a *Adapter) Diagnose(ctx context.Context, system, user string) (Diagnosis, error) {
	n, err := a.Call(ctx, system, user, ModeFalse)
	if err != nil {
		return DiagnosisUnknown, err
	}
	return Diagnosis(n), nil
}

// Categorize issues a ROOT_TYPE call.
func (a *Adapter) Categorize(ctx context.Context, system, user string) (Category, error) {
	n, err := a.Call(ctx, system, user, ModeRootType)
	if err != nil {
		return CategoryUnknown, err
	}
	return Category(n), nil
}
