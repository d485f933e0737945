package respond

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robermar23/mastodon-bot/internal/archive"
	"github.com/robermar23/mastodon-bot/internal/config"
	"github.com/robermar23/mastodon-bot/internal/contextstore"
	"github.com/robermar23/mastodon-bot/internal/tokens"
)

type postedReply struct {
	text      string
	inReplyTo string
	mediaIDs  []string
}

type fakeSocial struct {
	posts     map[string]*Post
	replies   []postedReply
	uploads   []string
	uploadErr error
	nextID    int
}

func newFakeSocial() *fakeSocial {
	return &fakeSocial{posts: map[string]*Post{}}
}

func (f *fakeSocial) GetPost(ctx context.Context, id string) (*Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, fmt.Errorf("status %s not found", id)
	}
	return p, nil
}

func (f *fakeSocial) PostReply(ctx context.Context, text, inReplyToID string, mediaIDs []string) (*Post, error) {
	f.replies = append(f.replies, postedReply{text: text, inReplyTo: inReplyToID, mediaIDs: mediaIDs})
	f.nextID++
	id := fmt.Sprintf("posted-%d", f.nextID)
	return &Post{ID: id, InReplyToID: inReplyToID, Content: text}, nil
}

func (f *fakeSocial) UploadMedia(ctx context.Context, data []byte, filename string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, filename)
	return "media-" + filename, nil
}

type fakeChat struct {
	calls   [][]contextstore.Message
	replies []string
	err     error
}

func (f *fakeChat) Complete(ctx context.Context, messages []contextstore.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	snapshot := make([]contextstore.Message, len(messages))
	copy(snapshot, messages)
	f.calls = append(f.calls, snapshot)

	reply := "canned reply"
	if len(f.replies) >= len(f.calls) {
		reply = f.replies[len(f.calls)-1]
	}
	return reply, nil
}

type fakeSpeech struct {
	tooLong bool
	taskID  string
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if f.tooLong {
		return nil, ErrSpeechTooLong
	}
	return []byte("mp3 bytes"), nil
}

func (f *fakeSpeech) StartSynthesisTask(ctx context.Context, text, voice string) (string, error) {
	return f.taskID, nil
}

type fakeSpeechQueue struct {
	inReplyTo string
	taskID    string
}

func (f *fakeSpeechQueue) EnqueueSpeechStatus(ctx context.Context, inReplyToID, taskID string) error {
	f.inReplyTo, f.taskID = inReplyToID, taskID
	return nil
}

type fakeObjects struct {
	stored map[string][]byte
}

func (f *fakeObjects) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if f.stored == nil {
		f.stored = map[string][]byte{}
	}
	f.stored[key] = body
	return "https://store.example/" + key, nil
}

func (f *fakeObjects) Get(ctx context.Context, key string) ([]byte, error) {
	b, ok := f.stored[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found", key)
	}
	return b, nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://store.example/" + key
}

func newResponder(mode config.ResponseType, deps Deps) *Responder {
	r := New(Options{
		Mode:            mode,
		Persona:         "You are a helpful assistant",
		ChatMaxTokens:   4096,
		MaxStatusChars:  500,
		PostDelay:       time.Millisecond,
		MaxResolveDepth: 10,
		SpeechVoice:     "Brian",
	}, deps)
	r.sleep = func(time.Duration) {}
	return r
}

func TestEchoEndToEnd(t *testing.T) {
	social := newFakeSocial()
	r := newResponder(config.ResponseReverseString, Deps{Social: social, Logger: slog.Default()})

	text, err := r.Respond(context.Background(), Job{Content: "hello", StatusID: "100"})
	require.NoError(t, err)

	assert.Equal(t, "olleh", text)
	require.Len(t, social.replies, 1)
	assert.Equal(t, "olleh /1", social.replies[0].text)
	assert.Equal(t, "100", social.replies[0].inReplyTo)
}

func TestEchoStripsMentions(t *testing.T) {
	social := newFakeSocial()
	r := newResponder(config.ResponseReverseString, Deps{Social: social, Logger: slog.Default()})

	text, err := r.Respond(context.Background(), Job{Content: "@bot hello", StatusID: "100"})
	require.NoError(t, err)
	assert.Equal(t, "olleh", text)
}

func TestChatCarriesConversationContext(t *testing.T) {
	ctx := context.Background()
	social := newFakeSocial()
	chat := &fakeChat{replies: []string{"first answer", "second answer"}}
	store := contextstore.NewMemoryStore(time.Hour)

	r := newResponder(config.ResponseChat, Deps{
		Social:    social,
		Chat:      chat,
		Store:     store,
		Estimator: &tokens.Estimator{},
		Logger:    slog.Default(),
	})

	_, err := r.Respond(ctx, Job{Content: "what is Go?", StatusID: "root"})
	require.NoError(t, err)

	// Second post replies to the first, same conversation.
	social.posts["root"] = &Post{ID: "root"}
	_, err = r.Respond(ctx, Job{Content: "tell me more", StatusID: "child", InReplyToID: "root"})
	require.NoError(t, err)

	require.Len(t, chat.calls, 2)
	second := chat.calls[1]

	assert.Equal(t, "system", second[0].Role)
	var contents []string
	for _, m := range second {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, "what is Go?")
	assert.Contains(t, contents, "first answer")
	assert.Equal(t, "tell me more", second[len(second)-1].Content)
}

func TestChatAppendsAssistantTurnToStore(t *testing.T) {
	ctx := context.Background()
	store := contextstore.NewMemoryStore(time.Hour)
	r := newResponder(config.ResponseChat, Deps{
		Social:    newFakeSocial(),
		Chat:      &fakeChat{replies: []string{"the answer"}},
		Store:     store,
		Estimator: &tokens.Estimator{},
		Logger:    slog.Default(),
	})

	_, err := r.Respond(ctx, Job{Content: "question", StatusID: "root"})
	require.NoError(t, err)

	saved, err := store.Get(ctx, "root")
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, "assistant", saved[2].Role)
	assert.Equal(t, "the answer", saved[2].Content)
}

func TestChatProviderErrorPropagates(t *testing.T) {
	r := newResponder(config.ResponseChat, Deps{
		Social:    newFakeSocial(),
		Chat:      &fakeChat{err: Transient(errors.New("rate limited"))},
		Store:     contextstore.NewMemoryStore(time.Hour),
		Estimator: &tokens.Estimator{},
		Logger:    slog.Default(),
	})

	_, err := r.Respond(context.Background(), Job{Content: "hi", StatusID: "1"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestResolveRootWalksReplyChain(t *testing.T) {
	social := newFakeSocial()
	social.posts["3"] = &Post{ID: "3", InReplyToID: "2"}
	social.posts["2"] = &Post{ID: "2", InReplyToID: "1"}
	social.posts["1"] = &Post{ID: "1"}

	r := newResponder(config.ResponseChat, Deps{Social: social, Logger: slog.Default()})

	root := r.ResolveRoot(context.Background(), Job{StatusID: "4", InReplyToID: "3"})
	assert.Equal(t, "1", root)
}

func TestResolveRootFallsBackOnMissingPost(t *testing.T) {
	social := newFakeSocial() // nothing resolvable
	r := newResponder(config.ResponseChat, Deps{Social: social, Logger: slog.Default()})

	root := r.ResolveRoot(context.Background(), Job{StatusID: "9", InReplyToID: "deleted"})
	assert.Equal(t, "9", root)
}

func TestResolveRootCapsCyclicChains(t *testing.T) {
	social := newFakeSocial()
	social.posts["a"] = &Post{ID: "a", InReplyToID: "b"}
	social.posts["b"] = &Post{ID: "b", InReplyToID: "a"}

	r := newResponder(config.ResponseChat, Deps{Social: social, Logger: slog.Default()})

	root := r.ResolveRoot(context.Background(), Job{StatusID: "start", InReplyToID: "a"})
	assert.Equal(t, "start", root)
}

func TestLongResponseIsChunkedInSequence(t *testing.T) {
	social := newFakeSocial()
	chat := &fakeChat{replies: []string{strings.Repeat("many words in this reply ", 60)}}

	r := newResponder(config.ResponseChat, Deps{
		Social:    social,
		Chat:      chat,
		Store:     contextstore.NewMemoryStore(time.Hour),
		Estimator: &tokens.Estimator{},
		Logger:    slog.Default(),
	})

	_, err := r.Respond(context.Background(), Job{Content: "talk a lot", StatusID: "root"})
	require.NoError(t, err)
	require.Greater(t, len(social.replies), 1)

	// First chunk replies to the inbound post, each next chunk to the
	// previously posted one.
	assert.Equal(t, "root", social.replies[0].inReplyTo)
	for i := 1; i < len(social.replies); i++ {
		assert.Equal(t, fmt.Sprintf("posted-%d", i), social.replies[i].inReplyTo)
	}
	for _, reply := range social.replies {
		assert.LessOrEqual(t, len([]rune(reply.text)), 500)
	}
}

func TestArchiveLinkAppended(t *testing.T) {
	social := newFakeSocial()
	objects := &fakeObjects{}
	chat := &fakeChat{replies: []string{"run `go vet` before pushing"}}

	r := newResponder(config.ResponseChat, Deps{
		Social:    social,
		Chat:      chat,
		Store:     contextstore.NewMemoryStore(time.Hour),
		Estimator: &tokens.Estimator{},
		Archive:   archive.NewPublisher(objects, slog.Default()),
		Objects:   objects,
		Logger:    slog.Default(),
	})

	text, err := r.Respond(context.Background(), Job{Content: "how do I lint?", StatusID: "42"})
	require.NoError(t, err)
	assert.Contains(t, text, "Full response: https://store.example/42.html")
	assert.Contains(t, objects.stored, "42.html")
}

func TestSpeechTooLongSchedulesStatusCheck(t *testing.T) {
	social := newFakeSocial()
	queue := &fakeSpeechQueue{}

	r := newResponder(config.ResponseTextToSpeech, Deps{
		Social:      social,
		Speech:      &fakeSpeech{tooLong: true, taskID: "task-1"},
		SpeechQueue: queue,
		Logger:      slog.Default(),
	})

	text, err := r.Respond(context.Background(), Job{Content: "read this aloud please", StatusID: "7"})
	require.NoError(t, err)

	assert.Contains(t, text, "being prepared")
	assert.Equal(t, "task-1", queue.taskID)
	assert.Equal(t, "7", queue.inReplyTo)
}

func TestSpeechSyncAttachesAudio(t *testing.T) {
	social := newFakeSocial()
	r := newResponder(config.ResponseTextToSpeech, Deps{
		Social: social,
		Speech: &fakeSpeech{},
		Logger: slog.Default(),
	})

	text, err := r.Respond(context.Background(), Job{Content: "short text", StatusID: "7"})
	require.NoError(t, err)

	assert.Equal(t, "Audio attached", text)
	require.Len(t, social.uploads, 1)
	require.Len(t, social.replies, 1)
	assert.Equal(t, []string{"media-7.mp3"}, social.replies[0].mediaIDs)
}

func TestCheckSpeechTaskPollsViaRetry(t *testing.T) {
	ctx := context.Background()
	social := newFakeSocial()
	objects := &fakeObjects{}

	r := newResponder(config.ResponseTextToSpeech, Deps{
		Social:  social,
		Objects: objects,
		Logger:  slog.Default(),
	})

	// Artifact absent: the check fails so the queue re-schedules it.
	err := r.CheckSpeechTask(ctx, "reply-1", "task-9")
	require.Error(t, err)
	assert.Empty(t, social.replies)

	// Artifact present: final reply goes out with the audio attached.
	_, err = objects.Put(ctx, SpeechArtifactKey("task-9"), []byte("mp3"), "audio/mpeg")
	require.NoError(t, err)

	require.NoError(t, r.CheckSpeechTask(ctx, "reply-1", "task-9"))
	require.Len(t, social.replies, 1)
	assert.Equal(t, "reply-1", social.replies[0].inReplyTo)
	assert.Equal(t, []string{"media-task-9.mp3"}, social.replies[0].mediaIDs)
}

func TestCheckSpeechTaskFallsBackToStorageLink(t *testing.T) {
	ctx := context.Background()
	social := newFakeSocial()
	social.uploadErr = Oversized(errors.New("attachment too large"))
	objects := &fakeObjects{}
	_, err := objects.Put(ctx, SpeechArtifactKey("task-9"), []byte("mp3"), "audio/mpeg")
	require.NoError(t, err)

	r := newResponder(config.ResponseTextToSpeech, Deps{
		Social:  social,
		Objects: objects,
		Logger:  slog.Default(),
	})

	require.NoError(t, r.CheckSpeechTask(ctx, "reply-1", "task-9"))
	require.Len(t, social.replies, 1)
	assert.Contains(t, social.replies[0].text, "https://store.example/.task-9.mp3")
	assert.Empty(t, social.replies[0].mediaIDs)
}

func TestPostPlaceholder(t *testing.T) {
	social := newFakeSocial()
	r := newResponder(config.ResponseChat, Deps{Social: social, Logger: slog.Default()})

	require.NoError(t, r.PostPlaceholder(context.Background(), Job{StatusID: "5"}))
	require.Len(t, social.replies, 1)
	assert.Equal(t, "beep bop, bop beep", social.replies[0].text)
	assert.Equal(t, "5", social.replies[0].inReplyTo)
}
