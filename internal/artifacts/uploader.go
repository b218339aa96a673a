package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/getbuf/internal/hooks"
	"git.home.luguber.info/inful/getbuf/internal/logfields"
	"git.home.luguber.info/inful/getbuf/internal/retry"
)

// Policy selects which runs are uploaded.
type Policy string

const (
	Always    Policy = "always"
	OnFailure Policy = "failure"
)

// KeysData is the PipelineContext data key listing uploaded object keys.
const KeysData = "artifacts.keys"

const textPlain = "text/plain; charset=utf-8"

type object struct {
	name        string
	content     []byte
	contentType string
}

// Uploader is a hooks.HookSource that uploads diagnostics at after-generate.
type Uploader struct {
	store   Store
	prefix  string
	policy  Policy
	timeout time.Duration
	retry   retry.Policy
}

// NewUploader uploads to store under prefix.
func NewUploader(store Store, prefix string, policy Policy) *Uploader {
	if policy == "" {
		policy = OnFailure
	}
	return &Uploader{
		store:   store,
		prefix:  strings.Trim(prefix, "/"),
		policy:  policy,
		timeout: 30 * time.Second,
		retry:   retry.NewPolicy(retry.ModeFixed, 0, 0, 0),
	}
}

// WithRetry sets the policy applied to each object upload.
func (u *Uploader) WithRetry(p retry.Policy) *Uploader {
	u.retry = p
	return u
}

// Discover registers the upload hook.
func (u *Uploader) Discover() ([]hooks.Registration, error) {
	return []hooks.Registration{{Stage: hooks.AfterGenerate, Hook: hooks.Func("s3-diagnostics", u.upload)}}, nil
}

// ObjectKey returns the key of name for runID.
func (u *Uploader) ObjectKey(runID, name string) string {
	key := strings.TrimSpace(runID) + "/" + strings.TrimLeft(name, "/")
	if u.prefix == "" {
		return key
	}
	return u.prefix + "/" + key
}

// ShouldUpload applies the policy to a run outcome.
func (u *Uploader) ShouldUpload(success bool) bool {
	return u.policy == Always || !success
}

func (u *Uploader) upload(ctx context.Context, pc *hooks.PipelineContext) error {
	summary := pc.Summary()
	if !u.ShouldUpload(summary.Success) {
		return nil
	}
	if pc.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	objects := []object{{"summary.json", data, "application/json"}}
	if inv := pc.Invocation; inv != nil {
		objects = append(objects,
			object{"stdout.log", []byte(inv.Stdout), textPlain},
			object{"stderr.log", []byte(inv.Stderr), textPlain},
		)
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	for _, obj := range objects {
		key := u.ObjectKey(pc.RunID, obj.name)
		err := u.retry.Do(ctx, func(ctx context.Context) error {
			return u.store.Put(ctx, key, obj.content, obj.contentType)
		})
		if err != nil {
			return err
		}
		pc.Append(KeysData, key)
	}
	if pc.Logger != nil {
		pc.Logger.Info("Uploaded run diagnostics", logfields.RunID(pc.RunID), "objects", len(objects))
	}
	return nil
}
