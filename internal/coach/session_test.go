package coach_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/coach"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/multierr"
)

func validInterview() coach.Interview {
	iv := coach.NewInterview()
	iv.SleepScore = 7
	iv.HungerScore = 6
	iv.RPEScore = 8
	iv.Notes = "legs heavy on Thursday"
	iv.MesocycleWeek = 3
	iv.NewTargets = coach.Targets{Calories: 1900, ProteinG: 165, CarbsG: 200, FatG: 55}
	return iv
}

func TestInterview_Validate(t *testing.T) {
	assert.NoError(t, coach.NewInterview().Validate())
	assert.NoError(t, validInterview().Validate())

	iv := validInterview()
	iv.MesocycleType = "base build"
	assert.NoError(t, iv.Validate())

	iv = validInterview()
	iv.SleepScore = 0
	iv.RPEScore = 11
	iv.MesocycleLength = 6
	iv.MesocycleType = "Bulk"
	iv.NewTargets.ProteinG = -1
	err := iv.Validate()
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 5)
	var fields []string
	for _, e := range errs {
		var ve *coach.ValidationError
		require.True(t, errors.As(e, &ve))
		fields = append(fields, ve.Field)
	}
	assert.Equal(t, []string{"sleep_score", "rpe_score", "mesocycle_length", "mesocycle_type", "new_targets.protein_g"}, fields)

	iv = validInterview()
	iv.MesocycleWeek = 9
	err = iv.Validate()
	var ve *coach.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "mesocycle_week", ve.Field)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "landing", coach.PhaseLanding.String())
	assert.Equal(t, "template", coach.PhaseTemplate.String())
	assert.Equal(t, "phase(9)", coach.Phase(9).String())
}

func TestSession_FullFlow(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := NewMockCompleter(ctrl)

	type call struct {
		phase string
		err   error
	}
	var observed []call
	session := coach.NewSession(completer, testResult(), coach.WithObserver(func(phase string, _ time.Duration, err error) {
		observed = append(observed, call{phase, err})
	}))
	assert.Equal(t, coach.PhaseLanding, session.Phase())
	require.NoError(t, session.Start())
	assert.Equal(t, coach.PhaseInterview, session.Phase())

	gomock.InOrder(
		completer.EXPECT().Complete(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req coach.Request) (string, error) {
				require.Len(t, req.Messages, 1)
				assert.Equal(t, coach.RoleUser, req.Messages[0].Role)
				assert.Contains(t, req.Messages[0].Content, "| Sleep quality | 7/10 |")
				assert.Contains(t, req.Messages[0].Content, "legs heavy on Thursday")
				return "analysis text", nil
			}),
		completer.EXPECT().Complete(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req coach.Request) (string, error) {
				assert.Contains(t, req.Messages[0].Content, "analysis text")
				return "proposal text", nil
			}),
		completer.EXPECT().Complete(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req coach.Request) (string, error) {
				assert.Contains(t, req.Messages[0].Content, "proposal text")
				assert.Contains(t, req.Messages[0].Content, "beyond the standard rotation")
				assert.Equal(t, 8000, req.MaxTokens)
				return "template text", nil
			}),
	)

	ctx := context.Background()
	text, err := session.SubmitInterview(ctx, validInterview())
	require.NoError(t, err)
	assert.Equal(t, "analysis text", text)
	assert.Equal(t, coach.PhaseAnalysis, session.Phase())

	text, err = session.Propose(ctx)
	require.NoError(t, err)
	assert.Equal(t, "proposal text", text)
	assert.Equal(t, coach.PhaseProposal, session.Phase())

	text, err = session.Approve(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "template text", text)
	assert.Equal(t, coach.PhaseTemplate, session.Phase())
	assert.True(t, session.Interview().UseNewMeals)
	assert.Equal(t, "template text", session.TemplateText())

	assert.Equal(t, []call{{"analysis", nil}, {"proposal", nil}, {"template", nil}}, observed)

	session.Restart()
	assert.Equal(t, coach.PhaseLanding, session.Phase())
	assert.Empty(t, session.AnalysisText())
	assert.Equal(t, coach.NewInterview(), session.Interview())
}

func TestSession_FailedCompletionIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := NewMockCompleter(ctrl)
	upstream := errors.New("upstream 529")

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", upstream).Times(1)

	var observedErr error
	session := coach.NewSession(completer, testResult(), coach.WithObserver(func(_ string, _ time.Duration, err error) {
		observedErr = err
	}))
	require.NoError(t, session.Start())

	_, err := session.SubmitInterview(context.Background(), validInterview())
	require.ErrorIs(t, err, upstream)
	assert.ErrorIs(t, observedErr, upstream)
	assert.Equal(t, coach.PhaseInterview, session.Phase())
	assert.Empty(t, session.AnalysisText())
}

func TestSession_EmptyReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := NewMockCompleter(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("  \n", nil)

	session := coach.NewSession(completer, testResult())
	require.NoError(t, session.Start())

	_, err := session.SubmitInterview(context.Background(), validInterview())
	assert.ErrorIs(t, err, coach.ErrEmptyReply)
	assert.Equal(t, coach.PhaseInterview, session.Phase())
}

func TestSession_PhaseGuards(t *testing.T) {
	ctrl := gomock.NewController(t)
	// no expectations: any completion fails the test
	completer := NewMockCompleter(ctrl)
	session := coach.NewSession(completer, testResult())
	ctx := context.Background()

	_, err := session.SubmitInterview(ctx, validInterview())
	assert.ErrorIs(t, err, coach.ErrWrongPhase)
	_, err = session.Propose(ctx)
	assert.ErrorIs(t, err, coach.ErrWrongPhase)
	_, err = session.Approve(ctx, false)
	assert.ErrorIs(t, err, coach.ErrWrongPhase)
	assert.ErrorIs(t, session.Back(), coach.ErrWrongPhase)

	require.NoError(t, session.Start())
	assert.ErrorIs(t, session.Start(), coach.ErrWrongPhase)

	invalid := validInterview()
	invalid.HungerScore = 42
	_, err = session.SubmitInterview(ctx, invalid)
	var ve *coach.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, coach.PhaseInterview, session.Phase())
}

func TestSession_Back(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := NewMockCompleter(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("analysis text", nil).Times(2)

	session := coach.NewSession(completer, testResult())
	require.NoError(t, session.Start())
	ctx := context.Background()

	_, err := session.SubmitInterview(ctx, validInterview())
	require.NoError(t, err)
	require.NoError(t, session.Back())
	assert.Equal(t, coach.PhaseInterview, session.Phase())
	assert.Equal(t, 7, session.Interview().SleepScore)

	_, err = session.SubmitInterview(ctx, validInterview())
	require.NoError(t, err)
	assert.Equal(t, coach.PhaseAnalysis, session.Phase())
}

func TestSession_NoCompleter(t *testing.T) {
	session := coach.NewSession(nil, testResult())
	require.NoError(t, session.Start())

	_, err := session.SubmitInterview(context.Background(), validInterview())
	assert.ErrorIs(t, err, coach.ErrNoCompleter)
}
