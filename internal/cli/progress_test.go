package cli

import (
	"bytes"
	"testing"

	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/stretchr/testify/assert"
)

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, "Seed completed", &usecase.IngestReport{
		Total:     3,
		Succeeded: 2,
		Failed:    1,
		Errors:    []string{"boots/broken.jpg: unreadable image"},
	})

	out := buf.String()
	assert.Contains(t, out, "Seed completed: 3 total, 2 succeeded, 1 failed")
	assert.Contains(t, out, "  - boots/broken.jpg: unreadable image")
}

func TestProgress_StepBeforeStartIsNoop(t *testing.T) {
	out := &bytes.Buffer{}
	p := newProgress("Seeding")
	p.out = out

	assert.NotPanics(t, p.step)
	assert.Zero(t, out.Len())

	p.start(2)
	p.step()
	p.step()
	assert.True(t, p.bar.IsFinished())
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["seed"])
	assert.True(t, names["reembed"])
	assert.NotNil(t, seedCmd.Flags().Lookup("reset"))
}
