package renamer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vidnum/internal/mapper"
)

// TempPrefix starts the name of files parked while breaking a rename cycle.
const TempPrefix = ".vidnum-"

// Schedule turns a mapping into an executable plan without touching the filesystem.
//
// Every source must exist and no destination may exist unless it is the source
// of another rename in the same plan. Renames are ordered so a file is only
// moved onto a path after the file there has moved away; rename cycles are
// broken by parking one file under a temporary name.
func (r *Renamer) Schedule(m *mapper.Mapping) (*Plan, error) {
	plan := &Plan{}
	for _, e := range m.Entries() {
		to := filepath.Join(filepath.Dir(e.Path), e.NewName)
		if to == e.Path {
			plan.Unchanged = append(plan.Unchanged, e.Path)
			continue
		}
		plan.Ops = append(plan.Ops, Op{From: e.Path, To: to})
	}

	byFrom := make(map[string]int, len(plan.Ops))
	for i, op := range plan.Ops {
		byFrom[op.From] = i
	}

	if err := r.preflight(plan.Ops, byFrom); err != nil {
		return nil, err
	}

	s := &scheduler{r: r, ops: plan.Ops, byFrom: byFrom, done: make([]bool, len(plan.Ops))}
	for i := range plan.Ops {
		if err := s.visit(i); err != nil {
			return nil, err
		}
	}
	plan.Steps = s.steps

	return plan, nil
}

func (r *Renamer) preflight(ops []Op, byFrom map[string]int) error {
	targets := make(map[string]string, len(ops))
	for _, op := range ops {
		if _, err := r.lstat(op.From); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return &RenameError{Type: SourceNotFound, Path: op.From, Err: err}
			}
			return &RenameError{Type: RenameFailed, Path: op.From, Err: err}
		}

		if other, dup := targets[op.To]; dup {
			return &RenameError{
				Type: DestinationExists,
				Path: op.From,
				Dest: op.To,
				Err:  fmt.Errorf("also the destination of %s", other),
			}
		}
		targets[op.To] = op.From

		if _, pending := byFrom[op.To]; pending {
			continue
		}
		if r.exists(op.To) {
			return &RenameError{Type: DestinationExists, Path: op.From, Dest: op.To}
		}
	}
	return nil
}

type scheduler struct {
	r      *Renamer
	ops    []Op
	byFrom map[string]int
	done   []bool
	steps  []Step
	temps  int
}

// visit schedules op i after the chain of ops blocking it.
func (s *scheduler) visit(i int) error {
	if s.done[i] {
		return nil
	}

	// Follow the chain of blockers: op j blocks op i when j still occupies i's destination.
	chain := []int{i}
	onChain := map[int]int{i: 0}
	for {
		last := chain[len(chain)-1]
		next, blocked := s.byFrom[s.ops[last].To]
		if !blocked || s.done[next] {
			break
		}
		if pos, seen := onChain[next]; seen {
			if err := s.breakCycle(chain[pos:]); err != nil {
				return err
			}
			chain = chain[:pos]
			break
		}
		onChain[next] = len(chain)
		chain = append(chain, next)
	}

	for k := len(chain) - 1; k >= 0; k-- {
		s.emit(chain[k])
	}
	return nil
}

// breakCycle schedules a cycle of ops. The first op is parked under a
// temporary name, the rest run in reverse, then the parked file moves into place.
func (s *scheduler) breakCycle(cycle []int) error {
	head := cycle[0]
	op := s.ops[head]

	temp, err := s.tempPath(op)
	if err != nil {
		return err
	}
	s.steps = append(s.steps, Step{From: op.From, To: temp, Op: head, First: true})

	for k := len(cycle) - 1; k > 0; k-- {
		s.emit(cycle[k])
	}

	s.steps = append(s.steps, Step{From: temp, To: op.To, Op: head})
	s.done[head] = true
	return nil
}

func (s *scheduler) emit(i int) {
	if s.done[i] {
		return
	}
	op := s.ops[i]
	s.steps = append(s.steps, Step{From: op.From, To: op.To, Op: i, First: true})
	s.done[i] = true
}

// tempPath returns an unused hidden path next to op's source.
func (s *scheduler) tempPath(op Op) (string, error) {
	dir := filepath.Dir(op.From)
	for attempt := 0; attempt < 1000; attempt++ {
		s.temps++
		candidate := filepath.Join(dir, fmt.Sprintf("%s%d-%s", TempPrefix, s.temps, filepath.Base(op.To)))
		if _, pending := s.byFrom[candidate]; !pending && !s.r.exists(candidate) {
			return candidate, nil
		}
	}
	return "", &RenameError{Type: DestinationExists, Path: op.From, Err: errors.New("no free temporary name")}
}

// IsTemp reports whether name is a temporary name used while breaking cycles.
func IsTemp(name string) bool {
	return strings.HasPrefix(filepath.Base(name), TempPrefix)
}
