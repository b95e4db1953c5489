package sink

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_LineEnding(t *testing.T) {
	tests := []struct {
		name   string
		ending string
		want   string
	}{
		{"default", "", "ADC1=512\nWARN: dropped=5\n"},
		{"crlf", "\r\n", "ADC1=512\r\nWARN: dropped=5\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := NewWriter(&buf, tt.ending)
			require.NoError(t, s.WriteLine("ADC1=512"))
			require.NoError(t, s.WriteLine("WARN: dropped=5"))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriter_Error(t *testing.T) {
	s := NewWriter(failingWriter{}, "\n")
	err := s.WriteLine("ADC1=1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestTee(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()
	fail := Func(func(string) error { return errors.New("nope") })

	err := Tee(a, fail, b).WriteLine("ADC2=300")
	assert.Error(t, err)
	assert.Equal(t, []string{"ADC2=300"}, a.Lines())
	assert.Equal(t, []string{"ADC2=300"}, b.Lines(), "later sinks still receive the line")
}

func TestRecorder_WaitFor(t *testing.T) {
	r := NewRecorder()
	assert.False(t, r.WaitFor(1, 10*time.Millisecond))

	go func() {
		for _, l := range []string{"a", "b", "c"} {
			time.Sleep(5 * time.Millisecond)
			_ = r.WriteLine(l)
		}
	}()

	assert.True(t, r.WaitFor(3, time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, r.Lines())

	r.Reset()
	assert.Empty(t, r.Lines())
}
