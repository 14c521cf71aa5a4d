// Package notebook provides a notebook-style execution surface over a
// sandboxed Python interpreter. Query results are seeded into the sandbox
// as named dataframes before any user code runs.
package notebook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/querydesk/internal/interpret"
)

// CellResult is the captured output of one cell execution. When both fields
// are set the image is the primary display artifact.
type CellResult struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// Primary returns the display artifact, image first.
func (r *CellResult) Primary() string {
	if r.Image != "" {
		return r.Image
	}
	return r.Text
}

// Runner executes code cells against a shared namespace.
type Runner interface {
	// SeedTable injects tabular data into the namespace as a dataframe
	// named varName, visible to every subsequently executed cell.
	SeedTable(varName string, table *interpret.Table) error
	// Run executes one cell. A raised exception inside the cell is caught,
	// stringified into the result text, and does not surface as an error;
	// only sandbox-level failures do.
	Run(ctx context.Context, code string) (*CellResult, error)
}

// PythonRunner runs cells in a python subprocess. The namespace is carried
// across cells by replaying previously executed sources, silenced, before
// each new cell. One runner is created per notebook page and shared by all
// of its cell executions.
type PythonRunner struct {
	python  string
	workdir string
	timeout time.Duration

	mu      sync.Mutex
	prelude []string
}

var _ Runner = (*PythonRunner)(nil)

// NewPythonRunner creates a runner using the given interpreter binary and a
// scratch directory for seeded data and rendered plots.
func NewPythonRunner(python, workdir string, timeout time.Duration) (*PythonRunner, error) {
	if python == "" {
		python = "python3"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, fmt.Errorf("create sandbox dir: %w", err)
	}
	return &PythonRunner{python: python, workdir: workdir, timeout: timeout}, nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SeedTable serializes the table to a JSON file in the workdir and registers
// a silenced prelude block that loads it into a pandas DataFrame.
func (r *PythonRunner) SeedTable(varName string, table *interpret.Table) error {
	if !identifier.MatchString(varName) {
		return fmt.Errorf("invalid variable name: %s", varName)
	}
	if table == nil || len(table.Columns) == 0 {
		return fmt.Errorf("no tabular data to seed")
	}

	data := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		cells := row.Cells
		if row.Merged {
			cells = append([]string{row.Cells[0]}, make([]string, len(table.Columns)-1)...)
		}
		data = append(data, cells)
	}
	payload, err := json.Marshal(map[string]any{
		"columns": table.Columns,
		"data":    data,
	})
	if err != nil {
		return fmt.Errorf("marshal seed data: %w", err)
	}

	path := filepath.Join(r.workdir, varName+"-"+uuid.New().String()+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write seed data: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prelude = append(r.prelude, fmt.Sprintf(`import json as _json
import pandas as pd
with open(%q) as _f:
    _payload = _json.load(_f)
%s = pd.DataFrame(_payload["data"], columns=_payload["columns"])
`, path, varName))
	return nil
}

// driverTemplate replays prelude blocks silenced, executes the cell with
// stdout and stderr captured, then renders any open matplotlib figure.
const driverTemplate = `import base64, contextlib, io, sys, traceback

ns = {"__name__": "__main__"}
try:
    import matplotlib
    matplotlib.use("Agg")
except Exception:
    pass

for _block in [%s]:
    try:
        _src = base64.b64decode(_block).decode("utf-8")
        with contextlib.redirect_stdout(io.StringIO()), contextlib.redirect_stderr(io.StringIO()):
            exec(compile(_src, "<prelude>", "exec"), ns)
    except Exception:
        pass

_buf = io.StringIO()
try:
    _cell = base64.b64decode(%q).decode("utf-8")
    with contextlib.redirect_stdout(_buf), contextlib.redirect_stderr(_buf):
        exec(compile(_cell, "<cell>", "exec"), ns)
except Exception:
    _buf.write(traceback.format_exc())

try:
    import matplotlib.pyplot as plt
    if plt.get_fignums():
        plt.gcf().savefig(%q)
        plt.close("all")
except Exception:
    pass

sys.stdout.write(_buf.getvalue())
`

// Run executes one cell in the subprocess and captures its output. The cell
// source joins the prelude afterwards so later cells see its definitions.
func (r *PythonRunner) Run(ctx context.Context, code string) (*CellResult, error) {
	r.mu.Lock()
	blocks := make([]string, 0, len(r.prelude))
	for _, src := range r.prelude {
		blocks = append(blocks, fmt.Sprintf("%q", base64.StdEncoding.EncodeToString([]byte(src))))
	}
	r.mu.Unlock()
	imagePath := filepath.Join(r.workdir, "fig-"+uuid.New().String()+".png")
	script := fmt.Sprintf(driverTemplate,
		strings.Join(blocks, ", "),
		base64.StdEncoding.EncodeToString([]byte(code)),
		imagePath,
	)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.python, "-c", script)
	cmd.Dir = r.workdir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("sandbox failed: %w\nOutput: %s", err, string(output))
	}

	r.mu.Lock()
	r.prelude = append(r.prelude, code)
	r.mu.Unlock()

	result := &CellResult{Text: strings.TrimRight(string(output), "\n")}
	if _, err := os.Stat(imagePath); err == nil {
		result.Image = imagePath
	}
	return result, nil
}
