package notebook

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/user/querydesk/internal/interpret"
	"github.com/user/querydesk/internal/types"
)

// CellType distinguishes runnable code cells from markdown prose.
type CellType string

const (
	CellCode     CellType = "code"
	CellMarkdown CellType = "markdown"
)

// Cell is one notebook cell.
type Cell struct {
	ID     types.CellID `json:"id"`
	Type   CellType     `json:"type"`
	Source string       `json:"source"`
	Output *CellResult  `json:"output,omitempty"`
	Active bool         `json:"active,omitempty"`
}

// Notebook is an ordered list of cells bound to one sandbox runner.
type Notebook struct {
	mu     sync.Mutex
	runner Runner
	cells  []*Cell
}

// New creates an empty notebook over the given runner.
func New(runner Runner) *Notebook {
	return &Notebook{runner: runner}
}

// Cells returns the cells in order.
func (n *Notebook) Cells() []*Cell {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Cell, len(n.cells))
	copy(out, n.cells)
	return out
}

// AppendCell adds a cell at the end and marks it active.
func (n *Notebook) AppendCell(cellType CellType, source string) *Cell {
	n.mu.Lock()
	defer n.mu.Unlock()

	cell := &Cell{
		ID:     types.NewCellID(),
		Type:   cellType,
		Source: source,
		Active: true,
	}
	for _, c := range n.cells {
		c.Active = false
	}
	n.cells = append(n.cells, cell)
	return cell
}

// SeedResult hands a tabular result to the sandbox: the data is injected
// into the namespace as varName before any referencing code runs, and a new
// active cell referencing the variable is appended, ready to execute.
func (n *Notebook) SeedResult(varName string, table *interpret.Table) (*Cell, error) {
	if err := n.runner.SeedTable(varName, table); err != nil {
		return nil, err
	}
	source := fmt.Sprintf("# Query result loaded as %s\n%s.head()", varName, varName)
	return n.AppendCell(CellCode, source), nil
}

// RunCell executes the identified code cell and stores its output. A cell
// exception ends up in the output text, never as an error here.
func (n *Notebook) RunCell(ctx context.Context, id types.CellID) (*CellResult, error) {
	n.mu.Lock()
	var cell *Cell
	for _, c := range n.cells {
		if c.ID == id {
			cell = c
		}
	}
	n.mu.Unlock()
	if cell == nil {
		return nil, fmt.Errorf("cell not found: %s", id)
	}
	if cell.Type != CellCode {
		return nil, fmt.Errorf("cell %s is not a code cell", id)
	}

	result, err := n.runner.Run(ctx, cell.Source)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	cell.Output = result
	n.mu.Unlock()
	return result, nil
}

// RunAll starts each code cell on a fixed timer: the next cell is scheduled
// after the delay, not after the previous cell's output is captured. It
// returns once every started cell has finished.
func (n *Notebook) RunAll(ctx context.Context, delay time.Duration) {
	cells := n.Cells()

	var wg sync.WaitGroup
	for i, cell := range cells {
		if cell.Type != CellCode {
			continue
		}
		if i > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				wg.Wait()
				return
			}
		}
		wg.Add(1)
		go func(id types.CellID) {
			defer wg.Done()
			if _, err := n.RunCell(ctx, id); err != nil {
				n.mu.Lock()
				for _, c := range n.cells {
					if c.ID == id {
						c.Output = &CellResult{Text: err.Error()}
					}
				}
				n.mu.Unlock()
			}
		}(cell.ID)
	}
	wg.Wait()
}

// notebookFile is the on-disk format.
type notebookFile struct {
	Cells []*Cell `json:"cells"`
}

// Load reads cells from a notebook JSON file.
func Load(runner Runner, path string) (*Notebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notebook: %w", err)
	}
	var file notebookFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal notebook: %w", err)
	}
	nb := New(runner)
	nb.cells = file.Cells
	for _, c := range nb.cells {
		if c.ID == "" {
			c.ID = types.NewCellID()
		}
	}
	return nb, nil
}

// Save writes the notebook to a JSON file.
func (n *Notebook) Save(path string) error {
	n.mu.Lock()
	data, err := json.MarshalIndent(notebookFile{Cells: n.cells}, "", "  ")
	n.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal notebook: %w", err)
	}
	data = append(data, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write notebook: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename notebook: %w", err)
	}
	return nil
}
