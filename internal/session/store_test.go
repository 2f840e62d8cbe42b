package session

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
)

func TestStore_PublishAndGet(t *testing.T) {
	st := NewStore()
	userID := uuid.New()

	_, ok := st.Get(userID)
	assert.False(t, ok)

	st.Publish(EventSignedIn, userID, &model.Session{AccessToken: "tok", UserID: userID})

	sess, ok := st.Get(userID)
	require.True(t, ok)
	assert.Equal(t, "tok", sess.AccessToken)
	assert.Equal(t, 1, st.Len())

	st.Publish(EventSignedOut, userID, nil)
	_, ok = st.Get(userID)
	assert.False(t, ok)
	assert.Equal(t, 0, st.Len())
}

func TestStore_SubscribeReceivesSnapshots(t *testing.T) {
	st := NewStore()
	userID := uuid.New()

	type received struct {
		event Event
		sess  *model.Session
	}
	var got []received
	unsubscribe := st.Subscribe(func(event Event, id uuid.UUID, s *model.Session) {
		assert.Equal(t, userID, id)
		got = append(got, received{event: event, sess: s})
	})

	orig := &model.Session{AccessToken: "a", UserID: userID}
	st.Publish(EventSignedIn, userID, orig)
	orig.AccessToken = "mutated"
	st.Publish(EventSignedOut, userID, orig)

	require.Len(t, got, 2)
	assert.Equal(t, EventSignedIn, got[0].event)
	require.NotNil(t, got[0].sess)
	assert.Equal(t, "a", got[0].sess.AccessToken)
	assert.Equal(t, EventSignedOut, got[1].event)
	assert.Nil(t, got[1].sess)

	unsubscribe()
	unsubscribe()
	st.Publish(EventSignedIn, userID, orig)
	assert.Len(t, got, 2)
}

func TestStore_ConcurrentPublish(t *testing.T) {
	st := NewStore()
	var mu sync.Mutex
	count := 0
	st.Subscribe(func(Event, uuid.UUID, *model.Session) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := uuid.New()
			st.Publish(EventSignedIn, id, &model.Session{UserID: id})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, count)
	assert.Equal(t, 50, st.Len())
}
