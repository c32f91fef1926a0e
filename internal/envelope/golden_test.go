package envelope

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// TestWireTranscripts pins the wire form of representative envelope
// streams. The golden files double as protocol documentation: one JSON
// envelope per line, in emission order.
func TestWireTranscripts(t *testing.T) {
	transcripts := map[string][]Envelope{
		"command_exchange": {
			&ShellExec{Text: "SELECT id, name FROM users;"},
			&Working{State: WorkingStart},
			&Stdout{Lines: []string{"id|name", "1|alice", "2|bob"}},
			&Working{State: WorkingEnd},
		},
		"bootstrap": {
			&Module{Kind: ModuleKindStatus, Text: "Preparing... (0/4)"},
			&Module{Kind: ModuleKindStatus, Text: "Preparing... (1/4)"},
			&Module{Kind: ModuleKindStatus, Text: "Preparing... (2/4)"},
			&Module{Kind: ModuleKindStatus, Text: "Preparing... (3/4)"},
			&Module{Kind: ModuleKindStatus, Text: "All downloads complete."},
		},
		"engine_crash": {
			&ShellExec{Text: "PRAGMA integrity_check;"},
			&Working{State: WorkingStart},
			&Stderr{Lines: []string{
				"Fatal: engine exited (code 11): database disk image is malformed.",
				"The engine cannot recover; a full restart of the hosting process is required.",
			}},
			&Module{Kind: ModuleKindStatus, Text: "Exception: engine exited (code 11): database disk image is malformed"},
			&Working{State: WorkingEnd},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for name, envs := range transcripts {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			for _, env := range envs {
				raw, err := json.Marshal(env)
				require.NoError(t, err)
				buf.Write(raw)
				buf.WriteByte('\n')
			}

			g.Assert(t, name, buf.Bytes())

			// Every line must survive the decode path unchanged in type.
			for i, line := range bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n")) {
				decoded, err := Decode(slog.Default(), line)
				require.NoError(t, err)
				require.Equal(t, envs[i].EnvelopeType(), decoded.EnvelopeType())
			}
		})
	}
}
