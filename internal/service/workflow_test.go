package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_errors "superchat/client/internal/errors"
	"superchat/client/internal/model"
	"superchat/client/internal/service"
)

func TestWorkflowCatalog(t *testing.T) {
	t.Run("every query kind has a workflow", func(t *testing.T) {
		kinds := []model.QueryKind{
			model.QueryGeneric, model.QuerySuperAgent, model.QuerySummarize,
			model.QueryTables, model.QueryImages,
			model.QueryScoreResumes, model.QueryScoreDocuments,
		}
		for _, kind := range kinds {
			w, err := service.WorkflowFor(kind)
			require.NoError(t, err)
			assert.Equal(t, kind, w.Kind)
			assert.NotEmpty(t, w.Label)
		}
	})

	t.Run("table queries take a single attachment", func(t *testing.T) {
		w, err := service.WorkflowFor(model.QueryTables)
		require.NoError(t, err)
		assert.Equal(t, 1, w.AttachmentLimit)
	})

	t.Run("resume scoring is unlimited", func(t *testing.T) {
		w, err := service.WorkflowFor(model.QueryScoreResumes)
		require.NoError(t, err)
		assert.Zero(t, w.AttachmentLimit)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := service.WorkflowFor("Telepathy")
		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})
}

func TestWorkflowSelector(t *testing.T) {
	t.Run("switching to a workflow on the same model keeps readiness", func(t *testing.T) {
		ready := readyAggregate()
		sel := service.NewWorkflowSelector(ready, "Qwen3-8B-int4-ov")

		_, err := sel.Select(model.QuerySummarize, model.QueryType{})

		require.NoError(t, err)
		assert.True(t, ready.Ready())
	})

	t.Run("a different recommended model suspends readiness until confirmed", func(t *testing.T) {
		ready := readyAggregate()
		sel := service.NewWorkflowSelector(ready, "Qwen3-8B-int4-ov")

		_, err := sel.Select(model.QueryImages, model.QueryType{})

		require.NoError(t, err)
		assert.False(t, ready.Ready())

		sel.ConfirmModelSwitch()
		assert.True(t, ready.Ready())

		// The image model is now current, so re-selecting is quiet.
		_, err = sel.Select(model.QueryImages, model.QueryType{})
		require.NoError(t, err)
		assert.True(t, ready.Ready())
	})

	t.Run("invalid query options are rejected", func(t *testing.T) {
		sel := service.NewWorkflowSelector(readyAggregate(), "Qwen3-8B-int4-ov")

		_, err := sel.Select(model.QueryGeneric, model.QueryType{Name: "Nonsense"})

		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})
}
