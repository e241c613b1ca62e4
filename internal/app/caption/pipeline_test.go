package caption

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callinvite/internal/app/relay"
)

type published struct {
	msg      relay.Message
	reliable bool
}

type recordingChannel struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (c *recordingChannel) Publish(_ context.Context, payload []byte, reliable bool) error {
	if c.err != nil {
		return c.err
	}
	msg, ok := relay.Decode(payload)
	if !ok {
		return errors.New("undecodable payload")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, published{msg: msg, reliable: reliable})
	return nil
}

func (c *recordingChannel) all() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.sent...)
}

// gatedTranslator blocks every call until release is closed, then answers from dict.
type gatedTranslator struct {
	release chan struct{}
	dict    map[string]string
	err     error

	mu    sync.Mutex
	calls []string
}

func newGatedTranslator(dict map[string]string) *gatedTranslator {
	return &gatedTranslator{release: make(chan struct{}), dict: dict}
}

func (g *gatedTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, source+"|"+target+":"+text)
	g.mu.Unlock()

	select {
	case <-g.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if g.err != nil {
		return "", g.err
	}
	return g.dict[text], nil
}

func (g *gatedTranslator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func TestHandleLocalPublishesAndMerges(t *testing.T) {
	ch := &recordingChannel{}
	p := NewPipeline(ch)
	defer p.Close()

	require.NoError(t, p.HandleLocal(context.Background(), Transcript{Text: "hel"}))
	require.NoError(t, p.HandleLocal(context.Background(), Transcript{Text: "hello", IsFinal: true}))
	require.NoError(t, p.HandleLocal(context.Background(), Transcript{Text: "   "}))

	assert.Equal(t, []Entry{{Identity: LocalLabel, Text: "hello"}}, p.Board().Entries())
	assert.Equal(t, []published{
		{msg: &relay.CaptionMessage{Text: "hel"}, reliable: false},
		{msg: &relay.CaptionMessage{Text: "hello", IsFinal: true}, reliable: true},
	}, ch.all())
}

func TestHandleLocalReturnsPublishError(t *testing.T) {
	ch := &recordingChannel{err: errors.New("offline")}
	p := NewPipeline(ch)
	defer p.Close()

	err := p.HandleLocal(context.Background(), Transcript{Text: "hi", IsFinal: true})
	require.Error(t, err)
	// The text is still shown locally.
	assert.Equal(t, "hi", p.Board().Entries()[0].Text)
}

func TestHandleRemoteInterimThenFinal(t *testing.T) {
	p := NewPipeline(&recordingChannel{})
	defer p.Close()

	p.HandleRemote("u1", &relay.CaptionMessage{Text: "hel"})
	p.HandleRemote("u1", &relay.CaptionMessage{Text: "hello", IsFinal: true})
	p.HandleRemote("", &relay.CaptionMessage{Text: "who"})

	assert.Equal(t, []Entry{
		{Identity: "u1", Text: "hello"},
		{Identity: UnknownLabel, Text: "who"},
	}, p.Board().Entries())
}

func TestFinalCaptionIsTranslatedAfterShowingOriginal(t *testing.T) {
	tr := newGatedTranslator(map[string]string{"hello": "hola"})

	changes := make(chan []Entry, 8)
	p := NewPipeline(&recordingChannel{},
		WithTranslator(tr),
		WithTargetLanguage("es"),
		WithOnChange(func(e []Entry) { changes <- e }),
	)
	defer p.Close()

	p.HandleRemote("u1", &relay.CaptionMessage{Text: "hello", IsFinal: true})
	assert.Equal(t, []Entry{{Identity: "u1", Text: "hello"}}, <-changes)

	close(tr.release)

	select {
	case got := <-changes:
		assert.Equal(t, []Entry{{Identity: "u1", Text: "hola"}}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("translation was not applied")
	}
	assert.Equal(t, []string{"en|es:hello"}, tr.calls)
}

func TestInterimAndSourceLanguageSkipTranslation(t *testing.T) {
	tr := newGatedTranslator(nil)
	close(tr.release)

	p := NewPipeline(&recordingChannel{}, WithTranslator(tr))
	defer p.Close()

	p.HandleRemote("u1", &relay.CaptionMessage{Text: "hello", IsFinal: true})

	assert.Equal(t, "es", p.SetTargetLanguage("es-MX"))
	p.HandleRemote("u1", &relay.CaptionMessage{Text: "more"})

	p.Close()
	assert.Equal(t, 0, tr.callCount())
}

func TestStaleTranslationIsDiscarded(t *testing.T) {
	tr := newGatedTranslator(map[string]string{"first": "primero"})

	p := NewPipeline(&recordingChannel{}, WithTranslator(tr), WithTargetLanguage("es"))

	p.HandleRemote("u1", &relay.CaptionMessage{Text: "first", IsFinal: true})
	p.HandleRemote("u1", &relay.CaptionMessage{Text: "second"})

	close(tr.release)
	time.Sleep(50 * time.Millisecond)
	p.Close()

	assert.Equal(t, []Entry{{Identity: "u1", Text: "second"}}, p.Board().Entries())
}

func TestTranslationFailureKeepsOriginal(t *testing.T) {
	tr := newGatedTranslator(nil)
	tr.err = errors.New("quota exceeded")
	close(tr.release)

	p := NewPipeline(&recordingChannel{}, WithTranslator(tr), WithTargetLanguage("fr"))

	require.NoError(t, p.HandleLocal(context.Background(), Transcript{Text: "hello", IsFinal: true}))
	p.Close()

	assert.Equal(t, 1, tr.callCount())
	assert.Equal(t, []Entry{{Identity: LocalLabel, Text: "hello"}}, p.Board().Entries())
}

func TestCloseDiscardsPendingTranslations(t *testing.T) {
	tr := newGatedTranslator(map[string]string{"hello": "hallo"})

	p := NewPipeline(&recordingChannel{}, WithTranslator(tr), WithTargetLanguage("de"))
	p.HandleRemote("u1", &relay.CaptionMessage{Text: "hello", IsFinal: true})

	require.Eventually(t, func() bool { return tr.callCount() == 1 }, time.Second, 5*time.Millisecond)
	p.Close()
	close(tr.release)

	assert.Equal(t, "hello", p.Board().Entries()[0].Text)

	// Captions after Close are still shown but not translated.
	p.HandleRemote("u2", &relay.CaptionMessage{Text: "late", IsFinal: true})
	assert.Equal(t, 1, tr.callCount())
}

func TestSlowObserverEndsOnLatestBoard(t *testing.T) {
	var mu sync.Mutex
	var last []Entry

	p := NewPipeline(&recordingChannel{}, WithOnChange(func(entries []Entry) {
		time.Sleep(time.Duration(len(entries)) * 200 * time.Microsecond)
		mu.Lock()
		last = entries
		mu.Unlock()
	}))
	defer p.Close()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			identity := string(rune('a' + i))
			p.HandleRemote(identity, &relay.CaptionMessage{Text: "hi " + identity, IsFinal: true})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, p.Board().Entries(), last)
}
