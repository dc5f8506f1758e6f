// Package seed fills an empty deployment with fake users, rooms and messages.
// Everything goes through the services, so the same invariants and cache
// invalidation apply as for live traffic.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CUknot/chat_backend/models"
	"github.com/CUknot/chat_backend/services"
	"github.com/brianvoe/gofakeit/v6"
)

// Password is shared by every seeded user.
const Password = "password"

type Options struct {
	Users    int
	Rooms    int
	Messages int
	// Seed makes a run reproducible. Zero picks a random seed.
	Seed int64
}

func DefaultOptions() Options {
	return Options{Users: 10, Rooms: 5, Messages: 100}
}

type Deps struct {
	Users    *services.Users
	Ledger   *services.Ledger
	Messages *services.MessageStore
}

// Summary counts what a run created.
type Summary struct {
	Users       int
	Rooms       int
	Memberships int
	Messages    int
}

func Run(ctx context.Context, d Deps, opts Options) (Summary, error) {
	var sum Summary
	if opts.Users <= 0 {
		return sum, fmt.Errorf("seed: need at least one user")
	}
	faker := gofakeit.New(opts.Seed)

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		name := fmt.Sprintf("%s%d", faker.Username(), i)
		u, err := d.Users.Register(ctx, name, Password)
		if err != nil {
			return sum, fmt.Errorf("seed user %q: %w", name, err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	// members[roomID] lists the users allowed to post there.
	members := map[uint][]uint{}
	rooms := make([]*models.Room, 0, opts.Rooms)
	for i := 0; i < opts.Rooms; i++ {
		owner := users[i%len(users)]
		name := fmt.Sprintf("%s %s", faker.Adjective(), faker.Noun())
		room, err := d.Ledger.CreateRoom(ctx, owner.ID, name, true)
		if err != nil {
			return sum, fmt.Errorf("seed room %q: %w", name, err)
		}
		rooms = append(rooms, room)
		members[room.ID] = []uint{owner.ID}
		sum.Memberships++

		for n := faker.Number(2, 5); n > 0; n-- {
			u := users[faker.Number(0, len(users)-1)]
			added, err := d.Ledger.AddMember(ctx, room.ID, u.ID)
			if err != nil {
				return sum, fmt.Errorf("seed membership: %w", err)
			}
			if added {
				members[room.ID] = append(members[room.ID], u.ID)
				sum.Memberships++
			}
		}
	}
	sum.Rooms = len(rooms)

	if len(rooms) > 0 {
		for i := 0; i < opts.Messages; i++ {
			room := rooms[faker.Number(0, len(rooms)-1)]
			ids := members[room.ID]
			author := ids[faker.Number(0, len(ids)-1)]
			if _, err := d.Messages.PostMessage(ctx, room.ID, author, faker.Sentence(faker.Number(3, 12)), nil); err != nil {
				return sum, fmt.Errorf("seed message: %w", err)
			}
			sum.Messages++
		}
	}

	slog.Info("seed complete", "users", sum.Users, "rooms", sum.Rooms, "memberships", sum.Memberships, "messages", sum.Messages)
	return sum, nil
}
