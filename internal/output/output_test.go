package output

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"stembed/internal/formatter"
)

func TestMemoryAppliesInstructions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Send(ctx, formatter.InstructionSet{formatter.WriteText("Héllo"), formatter.WriteText(" world")})
	assert.Equal(t, "Héllo world", m.Text())

	m.Send(ctx, formatter.InstructionSet{formatter.Backspace(6), formatter.WriteText("!")})
	assert.Equal(t, "Héllo!", m.Text())

	m.Send(ctx, formatter.InstructionSet{formatter.Backspace(100)})
	assert.Equal(t, "", m.Text())
	assert.Equal(t, 3, m.Sends())

	m.Reset()
	assert.Zero(t, m.Sends())
}

func TestWriterErasesWithBackspaceSpace(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, nil)

	w.Send(context.Background(), formatter.InstructionSet{
		formatter.WriteText("cat"),
		formatter.Backspace(2),
		formatter.WriteText("ow"),
	})
	assert.Equal(t, "cat\b \b\b \bow", buf.String())

	w.Send(context.Background(), nil)
	assert.Equal(t, "cat\b \b\b \bow", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriterSwallowsErrors(t *testing.T) {
	w := NewWriter(failingWriter{}, nil)
	assert.NotPanics(t, func() {
		w.Send(context.Background(), formatter.InstructionSet{formatter.WriteText("x")})
	})
}

func TestTee(t *testing.T) {
	a, b := NewMemory(), NewMemory()
	Tee{a, b}.Send(context.Background(), formatter.InstructionSet{formatter.WriteText("hi")})
	assert.Equal(t, "hi", a.Text())
	assert.Equal(t, "hi", b.Text())
}

func TestDescribe(t *testing.T) {
	got := Describe(formatter.InstructionSet{formatter.Backspace(3), formatter.WriteText("cat")})
	assert.Equal(t, `Backspace(3) Write("cat")`, got)
	assert.Equal(t, "", Describe(nil))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(formatter.InstructionSet{formatter.Backspace(0), formatter.WriteText("ok")}))
	assert.Error(t, Validate(formatter.InstructionSet{formatter.Backspace(-1)}))
	assert.Error(t, Validate(formatter.InstructionSet{formatter.WriteText("\xff")}))
	assert.Error(t, Validate(formatter.InstructionSet{{Kind: 9}}))
}
