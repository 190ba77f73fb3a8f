package signaling

import (
	"math/rand"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/hearth/internal/protocol"
)

func TestDirectoryJoin(t *testing.T) {
	h := newTestHub(t)
	a := open(t, h)
	b := open(t, h)

	h.Directory().Join("g", a.ID())
	msgs := drain(a)
	require.Len(t, msgs, 2)
	require.Equal(t, protocol.EventCommunityMembers, msgs[0].Event)
	require.Equal(t, protocol.EventUserJoined, msgs[1].Event)
	require.Equal(t, ids(a), payload[protocol.CommunityMembers](t, msgs[0]).Members)

	snapshot := h.Directory().Join("g", b.ID())
	require.Len(t, snapshot, 2)

	want := ids(a, b)
	slices.Sort(want)
	for _, s := range []*Session{a, b} {
		msgs := drain(s)
		require.Len(t, msgs, 2)
		roster := payload[protocol.CommunityMembers](t, msgs[0])
		require.Equal(t, "g", roster.CommunityID)
		require.Equal(t, want, roster.Members)
		joined := payload[protocol.UserJoined](t, msgs[1])
		require.Equal(t, b.ID().String(), joined.UserID)
	}

	t.Run("rejoin announces roster only", func(t *testing.T) {
		h.Directory().Join("g", b.ID())
		for _, s := range []*Session{a, b} {
			msgs := drain(s)
			require.Len(t, msgs, 1)
			require.Equal(t, protocol.EventCommunityMembers, msgs[0].Event)
		}
		require.Len(t, h.Directory().Members("g"), 2)
	})
}

func TestDirectoryLeave(t *testing.T) {
	h := newTestHub(t)
	d := h.Directory()
	a := open(t, h)
	b := open(t, h)
	c := open(t, h)

	d.Join("g", a.ID())
	d.Join("g", b.ID())
	drain(a)
	drain(b)

	t.Run("unknown room", func(t *testing.T) {
		require.ErrorIs(t, d.Leave("nowhere", a.ID()), ErrUnknownRoom)
	})

	t.Run("non-member still announced", func(t *testing.T) {
		require.ErrorIs(t, d.Leave("g", c.ID()), ErrNotAMember)
		require.Len(t, d.Members("g"), 2)
		for _, s := range []*Session{a, b} {
			msgs := drain(s)
			require.Len(t, msgs, 1)
			left := payload[protocol.UserLeft](t, msgs[0])
			require.Equal(t, c.ID().String(), left.UserID)
		}
		require.Empty(t, drain(c))
	})

	t.Run("member leaves", func(t *testing.T) {
		require.NoError(t, d.Leave("g", a.ID()))
		require.Empty(t, drain(a))

		msgs := drain(b)
		require.Len(t, msgs, 2)
		require.Equal(t, ids(b), payload[protocol.CommunityMembers](t, msgs[0]).Members)
		require.Equal(t, a.ID().String(), payload[protocol.UserLeft](t, msgs[1]).UserID)
	})

	t.Run("last member deletes room", func(t *testing.T) {
		require.NoError(t, d.Leave("g", b.ID()))
		require.Nil(t, d.Members("g"))
		require.NotContains(t, d.Sizes(), "g")
		require.Empty(t, d.RoomsContaining(b.ID()))

		// A new room with the same name starts empty.
		snapshot := d.Join("g", c.ID())
		require.Equal(t, []Identity{c.ID()}, snapshot)
	})
}

func TestDirectoryLeaveAll(t *testing.T) {
	h := newTestHub(t)
	d := h.Directory()
	a := open(t, h)
	b := open(t, h)

	for _, room := range []string{"x", "y", "z"} {
		d.Join(room, a.ID())
	}
	d.Join("y", b.ID())
	drain(a)
	drain(b)

	require.Equal(t, []string{"x", "y", "z"}, d.RoomsContaining(a.ID()))

	left := d.LeaveAll(a.ID())
	require.Equal(t, []string{"x", "y", "z"}, left)
	require.Empty(t, d.RoomsContaining(a.ID()))
	require.Equal(t, map[string]int{"y": 1}, d.Sizes())

	msgs := drain(b)
	require.Len(t, only(msgs, protocol.EventUserLeft), 1)
	require.Len(t, only(msgs, protocol.EventCommunityMembers), 1)

	require.Empty(t, d.LeaveAll(a.ID()))
}

func TestDirectoryMatchesModel(t *testing.T) {
	h := newTestHub(t, func(o *Options) { o.SendBuffer = 4096 })
	d := h.Directory()

	sessions := make([]*Session, 6)
	for i := range sessions {
		sessions[i] = open(t, h)
	}
	rooms := []string{"a", "b", "c"}
	model := make(map[string]map[Identity]bool)

	rng := rand.New(rand.NewSource(7))
	for step := 0; step < 500; step++ {
		s := sessions[rng.Intn(len(sessions))]
		room := rooms[rng.Intn(len(rooms))]

		if rng.Intn(2) == 0 {
			d.Join(room, s.ID())
			if model[room] == nil {
				model[room] = make(map[Identity]bool)
			}
			model[room][s.ID()] = true
		} else {
			d.Leave(room, s.ID())
			delete(model[room], s.ID())
			if len(model[room]) == 0 {
				delete(model, room)
			}
		}

		for _, r := range rooms {
			got := d.Members(r)
			if model[r] == nil {
				require.Nil(t, got, "room %s at step %d", r, step)
				continue
			}
			require.Len(t, got, len(model[r]), "room %s at step %d", r, step)
			for _, id := range got {
				require.True(t, model[r][id])
			}
		}
	}
}

func TestDirectoryRosterOrdering(t *testing.T) {
	h := newTestHub(t, func(o *Options) { o.SendBuffer = 1024 })
	d := h.Directory()

	const n = 24
	sessions := make([]*Session, n)
	for i := range sessions {
		sessions[i] = open(t, h)
	}

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			d.Join("busy", s.ID())
		}(s)
	}
	wg.Wait()

	// With joins only, every roster a member sees must be strictly larger
	// than the one before it.
	for _, s := range sessions {
		last := 0
		for _, msg := range only(drain(s), protocol.EventCommunityMembers) {
			size := len(payload[protocol.CommunityMembers](t, msg).Members)
			require.Greater(t, size, last)
			last = size
		}
		require.Equal(t, n, last)
	}
}

func TestBroadcastMessage(t *testing.T) {
	h := newTestHub(t)
	d := h.Directory()
	a := open(t, h)
	b := open(t, h)
	outsider := open(t, h)

	d.Join("g", a.ID())
	d.Join("g", b.ID())
	drain(a)
	drain(b)

	require.Equal(t, 2, d.BroadcastMessage("g", a.ID(), "hi"))
	for _, s := range []*Session{a, b} {
		msgs := drain(s)
		require.Len(t, msgs, 1)
		got := payload[protocol.CommunityMessage](t, msgs[0])
		require.Equal(t, protocol.CommunityMessage{
			UserID:      a.ID().String(),
			CommunityID: "g",
			Message:     "hi",
			Timestamp:   fixedNow.UnixMilli(),
		}, got)
	}
	require.Empty(t, drain(outsider))

	require.Zero(t, d.BroadcastMessage("nowhere", a.ID(), "hi"))
}
