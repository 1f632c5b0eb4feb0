package eventstore

import (
	"context"
	"encoding/json"
	"time"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
)

// Event type names.
const (
	TypeEntryPackaged = "EntryPackaged"
)

// EntryPackaged is recorded once per entry point that reached PackageEmit.
type EntryPackaged struct {
	Package  string            `json:"package"`
	ModuleID string            `json:"module_id"`
	Version  string            `json:"version"`
	Bundle   string            `json:"bundle,omitempty"`
	Files    int               `json:"files"`
	Digests  map[string]string `json:"digests,omitempty"`
}

// AppendEntryPackaged records e for buildID.
func AppendEntryPackaged(ctx context.Context, s Store, buildID string, e EntryPackaged) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return perrors.InternalError("marshal EntryPackaged payload", err).
			WithContext("build_id", buildID)
	}
	return s.Append(ctx, buildID, TypeEntryPackaged, payload, map[string]string{"module_id": e.ModuleID})
}

// DecodeEntryPackaged decodes the payload of an EntryPackaged event.
func DecodeEntryPackaged(ev Event) (EntryPackaged, error) {
	var e EntryPackaged
	if ev.Type() != TypeEntryPackaged {
		return e, perrors.InternalError("unexpected event type "+ev.Type(), nil)
	}
	if err := json.Unmarshal(ev.Payload(), &e); err != nil {
		return e, perrors.InternalError("unmarshal EntryPackaged payload", err).
			WithContext("event_id", ev.ID())
	}
	return e, nil
}

// Release is the read model of the last packaging of one module.
type Release struct {
	EntryPackaged
	BuildID    string    `json:"build_id"`
	PackagedAt time.Time `json:"packaged_at"`
}

// LatestReleases replays every EntryPackaged event up to now and returns the
// most recent release per module id.
func LatestReleases(ctx context.Context, s Store) (map[string]Release, error) {
	events, err := s.GetRange(ctx, time.Unix(0, 0), time.Now().Add(time.Second))
	if err != nil {
		return nil, err
	}
	out := make(map[string]Release)
	for _, ev := range events {
		if ev.Type() != TypeEntryPackaged {
			continue
		}
		e, err := DecodeEntryPackaged(ev)
		if err != nil {
			return nil, err
		}
		out[e.ModuleID] = Release{EntryPackaged: e, BuildID: ev.BuildID(), PackagedAt: ev.Timestamp()}
	}
	return out, nil
}
