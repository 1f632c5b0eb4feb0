package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packhooks/internal/hooks"
)

type sentMessage struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu     sync.Mutex
	sent   []sentMessage
	closed int
	url    string
	js     bool
	fail   error
	// flaky fails this many publishes before succeeding.
	flaky int
}

func (p *fakePublisher) Publish(_ context.Context, subject string, data []byte) error {
	if p.fail != nil {
		return p.fail
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.flaky > 0 {
		p.flaky--
		return errors.New("nats: timeout")
	}
	p.sent = append(p.sent, sentMessage{subject: subject, data: data})
	return nil
}

func (p *fakePublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
}

func useFakePublisher(t *testing.T) *fakePublisher {
	t.Helper()
	pub := &fakePublisher{}
	prev := newPublisher
	newPublisher = func(url string, js bool) (Publisher, error) {
		pub.url, pub.js = url, js
		return pub, nil
	}
	t.Cleanup(func() { newPublisher = prev })
	return pub
}

func TestNotify_PublishesPerEntry(t *testing.T) {
	pub := useFakePublisher(t)
	root := writeProject(t, widgetsManifest, widgetsFiles())

	_, err := runBuild(t, root, runOpts{
		jobs: []hooks.JobType{JobNotify},
		data: map[string]any{"notify": map[string]any{"url": "nats://broker:4222", "jetstream": true}},
	})
	require.NoError(t, err)

	require.Len(t, pub.sent, 3)
	assert.Equal(t, 3, pub.closed)
	assert.Equal(t, "nats://broker:4222", pub.url)
	assert.True(t, pub.js)

	var ev PackagedEvent
	require.NoError(t, json.Unmarshal(pub.sent[0].data, &ev))
	assert.Equal(t, "packhooks.builds", pub.sent[0].subject)
	assert.Equal(t, "@acme/widgets", ev.ModuleID)
	assert.Equal(t, "@acme/widgets", ev.Package)
	assert.Equal(t, "1.2.3", ev.Version)
	assert.Equal(t, "test-build", ev.BuildID)
	assert.Equal(t, "acme-widgets-1.2.3.tgz", ev.Bundle)
	assert.Equal(t, 2, ev.Files)
}

func TestNotify_RejectsWildcardSubject(t *testing.T) {
	useFakePublisher(t)
	root := writeProject(t, widgetsManifest, widgetsFiles())

	_, err := runBuild(t, root, runOpts{
		jobs: []hooks.JobType{JobNotify},
		data: map[string]any{"notify": map[string]any{"subject": "builds.>"}},
	})
	require.Error(t, err)
}

func TestNotify_PublishError(t *testing.T) {
	pub := useFakePublisher(t)
	pub.fail = errors.New("no responders")
	root := writeProject(t, widgetsManifest, widgetsFiles())

	_, err := runBuild(t, root, runOpts{jobs: []hooks.JobType{JobNotify}})
	require.ErrorContains(t, err, "no responders")
	assert.Equal(t, 1, pub.closed)
}

func TestNotify_RetriesTransientFailure(t *testing.T) {
	pub := useFakePublisher(t)
	pub.flaky = 1
	root := writeProject(t, widgetsManifest, widgetsFiles())

	_, err := runBuild(t, root, runOpts{
		jobs: []hooks.JobType{JobNotify},
		data: map[string]any{"notify": map[string]any{"retries": 1, "backoff": "fixed"}},
	})
	require.NoError(t, err)
	assert.Len(t, pub.sent, 3)
	// One connection per attempt.
	assert.Equal(t, 4, pub.closed)
}
