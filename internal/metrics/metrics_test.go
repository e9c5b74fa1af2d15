package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	require.NotPanics(t, Register)
	require.NotPanics(t, Register)
}

func TestAlarmsRaisedTotal(t *testing.T) {
	counter := AlarmsRaisedTotal.WithLabelValues("FENCE_EXIT")

	var before dto.Metric
	require.NoError(t, counter.Write(&before))

	counter.Inc()

	var after dto.Metric
	require.NoError(t, counter.Write(&after))
	require.Equal(t, before.GetCounter().GetValue()+1, after.GetCounter().GetValue())
}
