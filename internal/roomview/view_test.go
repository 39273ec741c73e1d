package roomview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"letmeask/internal/auth"
	"letmeask/internal/realtime"
)

type fakeSubscription struct {
	ch        chan realtime.Snapshot
	once      sync.Once
	cancelled bool
	mu        sync.Mutex
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{ch: make(chan realtime.Snapshot, 4)}
}

func (s *fakeSubscription) Snapshots() <-chan realtime.Snapshot { return s.ch }

func (s *fakeSubscription) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.close()
}

func (s *fakeSubscription) close() {
	s.once.Do(func() { close(s.ch) })
}

func (s *fakeSubscription) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

type pushCall struct {
	roomID string
	record realtime.QuestionRecord
}

type fakeDatabase struct {
	mu         sync.Mutex
	subscribed []string
	subs       []*fakeSubscription
	pushes     []pushCall
	pushErr    error
	release    chan struct{}
}

func (db *fakeDatabase) Subscribe(_ context.Context, roomID string) (Subscription, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	sub := newFakeSubscription()
	db.subscribed = append(db.subscribed, roomID)
	db.subs = append(db.subs, sub)
	return sub, nil
}

func (db *fakeDatabase) PushQuestion(ctx context.Context, roomID string, record realtime.QuestionRecord) (string, error) {
	if db.release != nil {
		<-db.release
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.pushes = append(db.pushes, pushCall{roomID: roomID, record: record})
	if db.pushErr != nil {
		return "", db.pushErr
	}
	return "k-new", nil
}

func (db *fakeDatabase) pushCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.pushes)
}

func (db *fakeDatabase) sub(i int) *fakeSubscription {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.subs[i]
}

type fakeSessions struct {
	session *auth.Session
}

func (f fakeSessions) CurrentSession() (auth.Session, bool) {
	if f.session == nil {
		return auth.Session{}, false
	}
	return *f.session, true
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
}

func (n *recordingNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.successes), len(n.errors)
}

var ana = &auth.Session{ID: "uid-ana", Name: "Ana", Avatar: "ana.png"}

func snapshotOf(title string, keys ...string) realtime.Snapshot {
	snap := realtime.Snapshot{RoomID: "r1", Title: title}
	for _, k := range keys {
		snap.SetQuestion(k, realtime.QuestionRecord{
			Content: "question " + k,
			Author:  realtime.Author{Name: "Ana", Avatar: "ana.png"},
		})
	}
	return snap
}

func TestApplySnapshot(t *testing.T) {
	view := New(&fakeDatabase{}, fakeSessions{}, &recordingNotifier{}, "r1")

	t.Run("question count matches the snapshot", func(t *testing.T) {
		view.ApplySnapshot(snapshotOf("Standup", "k1", "k2", "k3"))
		if got := len(view.Questions()); got != 3 {
			t.Fatalf("expected 3 questions, got %d", got)
		}
	})

	t.Run("round trip keeps key and fields", func(t *testing.T) {
		snap := realtime.Snapshot{Title: "T"}
		snap.SetQuestion("k1", realtime.QuestionRecord{
			Content:    "c",
			Author:     realtime.Author{Name: "n", Avatar: "a"},
			IsAnswered: true,
		})
		view.ApplySnapshot(snap)

		want := Question{ID: "k1", Author: realtime.Author{Name: "n", Avatar: "a"}, Content: "c", IsAnswered: true}
		got := view.Questions()
		if len(got) != 1 || got[0] != want {
			t.Fatalf("expected [%+v], got %+v", want, got)
		}
		if view.Title() != "T" {
			t.Fatalf("expected title T, got %q", view.Title())
		}
	})

	t.Run("missing questions give an empty list", func(t *testing.T) {
		view.ApplySnapshot(realtime.Snapshot{Title: "Empty"})
		if got := view.Questions(); got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil list, got %#v", got)
		}
	})

	t.Run("order follows the snapshot, not the keys", func(t *testing.T) {
		view.ApplySnapshot(snapshotOf("Order", "k9", "k1", "k5"))
		got := view.Questions()
		if got[0].ID != "k9" || got[1].ID != "k1" || got[2].ID != "k5" {
			t.Fatalf("unexpected order %v %v %v", got[0].ID, got[1].ID, got[2].ID)
		}
	})

	t.Run("replaying a snapshot is idempotent", func(t *testing.T) {
		snap := snapshotOf("Same", "k1", "k2")
		view.ApplySnapshot(snap)
		first := view.Questions()
		view.ApplySnapshot(snap)
		second := view.Questions()
		if len(first) != len(second) {
			t.Fatalf("length changed: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("entry %d changed: %+v vs %+v", i, first[i], second[i])
			}
		}
	})
}

func TestHandleSendNewQuestion(t *testing.T) {
	t.Run("blank input is ignored silently", func(t *testing.T) {
		db := &fakeDatabase{}
		notifier := &recordingNotifier{}
		view := New(db, fakeSessions{session: ana}, notifier, "r1")
		view.SetNewQuestion("  \n\t ")

		result, err := view.HandleSendNewQuestion(context.Background())
		if !errors.Is(err, ErrEmptyQuestion) || result != nil {
			t.Fatalf("expected ErrEmptyQuestion, got %v", err)
		}
		if db.pushCount() != 0 {
			t.Fatal("expected no write")
		}
		if view.NewQuestion() != "  \n\t " {
			t.Fatalf("input should be unchanged, got %q", view.NewQuestion())
		}
		if s, e := notifier.counts(); s != 0 || e != 0 {
			t.Fatalf("expected no notifications, got %d/%d", s, e)
		}
	})

	t.Run("anonymous submit notifies once", func(t *testing.T) {
		db := &fakeDatabase{}
		notifier := &recordingNotifier{}
		view := New(db, fakeSessions{}, notifier, "r1")
		view.SetNewQuestion("Hello?")

		if _, err := view.HandleSendNewQuestion(context.Background()); !errors.Is(err, ErrNotSignedIn) {
			t.Fatalf("expected ErrNotSignedIn, got %v", err)
		}
		if db.pushCount() != 0 {
			t.Fatal("expected no write")
		}
		if len(notifier.errors) != 1 || notifier.errors[0] != MessageNotSignedIn {
			t.Fatalf("expected one %q notification, got %v", MessageNotSignedIn, notifier.errors)
		}
		if view.State() != Anonymous {
			t.Fatalf("expected anonymous state, got %v", view.State())
		}
	})

	t.Run("signed in submit writes once and clears input", func(t *testing.T) {
		db := &fakeDatabase{release: make(chan struct{})}
		notifier := &recordingNotifier{}
		view := New(db, fakeSessions{session: ana}, notifier, "r1")
		view.SetNewQuestion("What time?")

		ctx, cancel := context.WithCancel(context.Background())
		result, err := view.HandleSendNewQuestion(ctx)
		if err != nil {
			t.Fatalf("HandleSendNewQuestion: %v", err)
		}
		if view.NewQuestion() != "" {
			t.Fatalf("expected input cleared before acknowledgment, got %q", view.NewQuestion())
		}
		// 取消呼叫端的 context 不會中斷已發出的寫入
		cancel()
		close(db.release)

		select {
		case err := <-result:
			if err != nil {
				t.Fatalf("write failed: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for write")
		}

		if db.pushCount() != 1 {
			t.Fatalf("expected exactly one write, got %d", db.pushCount())
		}
		want := pushCall{roomID: "r1", record: realtime.QuestionRecord{
			Content: "What time?",
			Author:  realtime.Author{Name: "Ana", Avatar: "ana.png"},
		}}
		if db.pushes[0] != want {
			t.Fatalf("expected %+v, got %+v", want, db.pushes[0])
		}
		if len(notifier.successes) != 1 || notifier.successes[0] != MessageQuestionSent {
			t.Fatalf("expected one success notification, got %v", notifier.successes)
		}
		if len(view.Questions()) != 0 {
			t.Fatal("question must only appear through a snapshot")
		}
	})

	t.Run("failed write reports the error without success", func(t *testing.T) {
		db := &fakeDatabase{pushErr: errors.New("permission denied")}
		notifier := &recordingNotifier{}
		view := New(db, fakeSessions{session: ana}, notifier, "r1")
		view.SetNewQuestion("Hi")

		result, err := view.HandleSendNewQuestion(context.Background())
		if err != nil {
			t.Fatalf("HandleSendNewQuestion: %v", err)
		}
		if err := <-result; err == nil {
			t.Fatal("expected write error")
		}
		if s, _ := notifier.counts(); s != 0 {
			t.Fatalf("expected no success notification, got %d", s)
		}
	})
}

func TestMountAndSetRoomID(t *testing.T) {
	db := &fakeDatabase{}
	changed := make(chan struct{}, 8)
	dropped := make(chan struct{}, 1)
	view := New(db, fakeSessions{session: ana}, &recordingNotifier{}, "r1",
		WithChangeHandler(func() { changed <- struct{}{} }),
		WithDropHandler(func() { dropped <- struct{}{} }),
	)

	wait := func(ch <-chan struct{}, what string) {
		t.Helper()
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", what)
		}
	}

	if err := view.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	first := db.sub(0)
	first.ch <- snapshotOf("Room one", "k1")
	wait(changed, "first snapshot")
	if view.Title() != "Room one" || len(view.Questions()) != 1 {
		t.Fatalf("unexpected state %q %d", view.Title(), len(view.Questions()))
	}

	if err := view.SetRoomID(context.Background(), "r2"); err != nil {
		t.Fatalf("SetRoomID: %v", err)
	}
	if !first.isCancelled() {
		t.Fatal("expected old subscription to be cancelled")
	}
	if db.subscribed[1] != "r2" || view.RoomID() != "r2" {
		t.Fatalf("expected subscription to r2, got %v", db.subscribed)
	}

	second := db.sub(1)
	second.ch <- snapshotOf("Room two", "a", "b")
	wait(changed, "second snapshot")
	if view.Title() != "Room two" || len(view.Questions()) != 2 {
		t.Fatalf("unexpected state %q %d", view.Title(), len(view.Questions()))
	}

	// 遠端關閉訂閱
	second.close()
	wait(dropped, "drop notification")

	if err := view.Mount(context.Background()); err != nil {
		t.Fatalf("re-Mount: %v", err)
	}
	third := db.sub(2)
	view.Unmount()
	if !third.isCancelled() {
		t.Fatal("expected Unmount to cancel the subscription")
	}
	select {
	case <-dropped:
		t.Fatal("Unmount must not be reported as a drop")
	case <-time.After(50 * time.Millisecond):
	}
}
