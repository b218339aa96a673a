package hooks

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// CommandSpec declares an external command run as a hook.
type CommandSpec struct {
	Name string
	Run  []string
	// Dir is resolved against the source root when relative. Empty means the source root.
	Dir string
	Env map[string]string
}

// CommandSource turns configured commands into hooks.
type CommandSource struct {
	specs map[string][]CommandSpec
}

// NewCommandSource creates a source from commands keyed by stage name.
func NewCommandSource(specs map[string][]CommandSpec) *CommandSource {
	return &CommandSource{specs: specs}
}

// Discover returns registrations in stage order, then declaration order.
func (s *CommandSource) Discover() ([]Registration, error) {
	for name := range s.specs {
		if _, err := ParseStage(name); err != nil {
			return nil, err
		}
	}
	var regs []Registration
	for _, stage := range Stages() {
		for i, spec := range s.specs[string(stage)] {
			if len(spec.Run) == 0 {
				return nil, fmt.Errorf("hook %d at %s has an empty command", i, stage)
			}
			if spec.Name == "" {
				spec.Name = filepath.Base(spec.Run[0])
			}
			regs = append(regs, Registration{Stage: stage, Hook: &CommandHook{Spec: spec, stage: stage}})
		}
	}
	return regs, nil
}

// CommandHook runs an external command with run metadata in its environment:
// GETBUF_STAGE, GETBUF_RUN_ID, GETBUF_SOURCE_DIR, GETBUF_CONFIG,
// GETBUF_OUTPUT_DIR, GETBUF_OUTPUT_DIRS, GETBUF_CLEAN and, after generation,
// GETBUF_EXIT_CODE. Directories are absolute; GETBUF_OUTPUT_DIRS is a
// path-list of every plugin output directory.
// Combined output is stored in Data under "hook.<name>.output".
type CommandHook struct {
	Spec  CommandSpec
	stage Stage
}

func (h *CommandHook) Name() string { return h.Spec.Name }

func (h *CommandHook) Run(ctx context.Context, pc *PipelineContext) error {
	// #nosec G204 -- commands come from the operator's configuration
	cmd := exec.CommandContext(ctx, h.Spec.Run[0], h.Spec.Run[1:]...)
	cmd.Dir = h.dir(pc)
	cmd.Env = append(os.Environ(), h.environ(pc)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	pc.Set("hook."+h.Spec.Name+".output", out.String())
	if err != nil {
		if tail := lastLine(out.String()); tail != "" {
			return fmt.Errorf("%w: %s", err, tail)
		}
		return err
	}
	return nil
}

func (h *CommandHook) dir(pc *PipelineContext) string {
	root := pc.SourceRoot()
	switch {
	case h.Spec.Dir == "":
		return root
	case filepath.IsAbs(h.Spec.Dir) || root == "":
		return h.Spec.Dir
	default:
		return filepath.Join(root, h.Spec.Dir)
	}
}

func (h *CommandHook) environ(pc *PipelineContext) []string {
	env := []string{
		"GETBUF_STAGE=" + string(h.stage),
		"GETBUF_RUN_ID=" + pc.RunID,
		"GETBUF_SOURCE_DIR=" + pc.SourceRoot(),
		"GETBUF_OUTPUT_DIR=" + pc.PrimaryOutputDir(),
		"GETBUF_OUTPUT_DIRS=" + strings.Join(pc.OutputDirs, string(os.PathListSeparator)),
		"GETBUF_CLEAN=" + strconv.FormatBool(pc.Clean),
	}
	if pc.Modules != nil {
		env = append(env, "GETBUF_CONFIG="+pc.Modules.ConfigPath)
	}
	if pc.Invocation != nil {
		env = append(env, "GETBUF_EXIT_CODE="+strconv.Itoa(pc.Invocation.ExitCode))
	}
	for _, k := range slices.Sorted(maps.Keys(h.Spec.Env)) {
		env = append(env, k+"="+h.Spec.Env[k])
	}
	return env
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
