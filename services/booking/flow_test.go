package booking

import (
	"testing"

	"fixhub/models"

	"github.com/stretchr/testify/require"
)

func TestFlow_NextGuards(t *testing.T) {
	t.Run("next fails while the current step is incomplete", func(t *testing.T) {
		st := NewState("p1")
		_, err := Next(st)
		require.Error(t, err)
		require.Contains(t, err.Error(), "incomplete")
	})

	t.Run("next succeeds once the step's predicate holds", func(t *testing.T) {
		st := NewState("p1")
		st = SetService(st, "cleaning", nil)

		next, err := Next(st)
		require.NoError(t, err)
		require.Equal(t, models.StepDateTime, next.Step)
		require.True(t, next.Valid[int(models.StepServiceSelection)])
		require.False(t, next.Valid[int(models.StepDateTime)], "the entered step starts unvalidated")
	})

	t.Run("next fails on the terminal step", func(t *testing.T) {
		st := NewState("p1")
		st = GoTo(st, models.StepConfirmation)
		_, err := Next(st)
		require.Error(t, err)
		require.Contains(t, err.Error(), "final step")
	})
}

func TestFlow_PreviousMarksRevisitedStepValid(t *testing.T) {
	st := NewState("p1")
	st = SetService(st, "cleaning", nil)
	st, err := Next(st)
	require.NoError(t, err)

	back, err := Previous(st)
	require.NoError(t, err)
	require.Equal(t, models.StepServiceSelection, back.Step)
	require.True(t, back.Valid[int(models.StepServiceSelection)],
		"a previously completed step is assumed valid when revisited")

	_, err = Previous(back)
	require.Error(t, err, "cannot go back from the first step")
}

func TestFlow_GoToRevalidates(t *testing.T) {
	st := NewState("p1")

	st = GoTo(st, models.StepDateTime)
	require.Equal(t, models.StepDateTime, st.Step)
	require.False(t, st.Valid[int(models.StepDateTime)])

	st = SetSchedule(st, "2025-11-15", "10:00")
	st = GoTo(st, models.StepDateTime)
	require.True(t, st.Valid[int(models.StepDateTime)])
}

func TestFlow_GoToOutOfRangeIsIgnored(t *testing.T) {
	st := NewState("p1")
	st = SetService(st, "cleaning", nil)

	require.NotPanics(t, func() {
		got := GoTo(st, models.FlowStep(99))
		require.Equal(t, st, got)
		got = GoTo(st, models.FlowStep(-1))
		require.Equal(t, st, got)
	})
}

func TestFlow_SummaryPredicate(t *testing.T) {
	base := models.BookingDraft{
		ProviderID: "p1",
		ServiceID:  "cleaning",
		Date:       "2025-11-15",
		Time:       "10:00",
		Location: &models.Location{
			Address: "East Legon",
			City:    "Accra",
			Region:  "Greater Accra",
		},
	}

	t.Run("complete draft is summary-valid", func(t *testing.T) {
		require.True(t, StepValid(models.StepSummary, base))
	})

	t.Run("omitting the region invalidates the summary", func(t *testing.T) {
		d := base
		loc := *base.Location
		loc.Region = ""
		d.Location = &loc
		require.False(t, StepValid(models.StepSummary, d))
	})

	t.Run("missing schedule invalidates the summary", func(t *testing.T) {
		d := base
		d.Time = ""
		require.False(t, StepValid(models.StepSummary, d))
	})
}

func TestFlow_PaymentSteps(t *testing.T) {
	d := models.BookingDraft{ProviderID: "p1"}
	require.False(t, StepValid(models.StepPaymentMethod, d))

	d.Method = &models.PaymentMethod{Type: models.MethodMobileMoney, Carrier: "mtn", PhoneNum: "0244000000"}
	require.True(t, StepValid(models.StepPaymentMethod, d))

	t.Run("processing requires a transaction unless paying cash", func(t *testing.T) {
		require.False(t, StepValid(models.StepPaymentProcessing, d))

		withTx := d
		withTx.TransactionID = "T1"
		require.True(t, StepValid(models.StepPaymentProcessing, withTx))

		cash := d
		cash.Method = &models.PaymentMethod{Type: models.MethodCash}
		require.True(t, StepValid(models.StepPaymentProcessing, cash))
	})

	require.True(t, StepValid(models.StepConfirmation, d), "confirmation is always valid")
}

func TestFlow_FullForwardWalk(t *testing.T) {
	st := NewState("p1")
	st = SetService(st, "cleaning", []string{"windows"})

	st, err := Next(st)
	require.NoError(t, err)
	st = SetSchedule(st, "2025-11-15", "10:00")

	st, err = Next(st)
	require.NoError(t, err)
	st = SetLocation(st, models.Location{Address: "East Legon", City: "Accra", Region: "Greater Accra"})

	st, err = Next(st)
	require.NoError(t, err)
	require.Equal(t, models.StepSummary, st.Step)
	require.True(t, StepValid(st.Step, st.Draft))

	st, err = Next(st)
	require.NoError(t, err)
	require.Equal(t, models.StepPaymentMethod, st.Step)

	st = SetMethod(st, models.PaymentMethod{Type: models.MethodCash})
	st, err = Next(st)
	require.NoError(t, err)
	require.Equal(t, models.StepPaymentProcessing, st.Step)
}

func TestFlow_Reset(t *testing.T) {
	st := NewState("p1")
	st = SetService(st, "cleaning", nil)
	st, err := Next(st)
	require.NoError(t, err)

	st = Reset(st.Draft.ProviderID)
	require.Equal(t, models.StepServiceSelection, st.Step)
	require.Equal(t, models.BookingDraft{ProviderID: "p1"}, st.Draft)
	require.False(t, StepValid(st.Step, st.Draft))
}
