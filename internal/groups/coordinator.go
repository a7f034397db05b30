// Package groups manages group lifecycle, invite-code allocation, step
// publication, and the live ranking subscription against the remote store.
package groups

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"

	"github.com/google/uuid"

	"github.com/Redish03/StepCounter/internal/domain"
	"github.com/Redish03/StepCounter/internal/identity"
	"github.com/Redish03/StepCounter/internal/remote"
)

// Remote store layout.
const (
	usersCollection  = "users"
	groupsCollection = "groups"

	fieldUID       = "uid"
	fieldName      = "name"
	fieldSteps     = "steps"
	fieldGroupID   = "groupId"
	fieldEnterCode = "enterCode"
	fieldGroupName = "groupName"
	fieldLeaderUID = "leaderUid"
	fieldMembers   = "members"
)

// errCodeTaken aborts a creation transaction when the drawn invite code lost
// the race; the caller draws a fresh code and retries.
var errCodeTaken = errors.New("invite code taken")

// CodeGenerator draws a random 6-digit invite code candidate. Injected so
// collision handling is deterministically testable.
type CodeGenerator func() string

// RandomCode is the production generator.
func RandomCode() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}

// Option configures optional behaviour for the Coordinator.
type Option func(*Coordinator)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithCodeGenerator injects the invite-code source.
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(c *Coordinator) { c.genCode = gen }
}

// Coordinator owns group membership operations. It never assumes it is the
// only writer: every mutation that spans the group document and a user
// document runs in one store transaction.
type Coordinator struct {
	store   remote.Store
	ident   identity.Provider
	genCode CodeGenerator
	newID   func() string
	logger  *log.Logger
}

// NewCoordinator constructs a Coordinator over the store and identity.
func NewCoordinator(store remote.Store, ident identity.Provider, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		ident:   ident,
		genCode: RandomCode,
		newID:   uuid.NewString,
		logger:  log.New(log.Writer(), "[groups] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateGroup allocates a free invite code and atomically creates the group
// with the caller as leader and sole member, pointing the caller's user
// document at it. Code freedom is re-verified inside the creating transaction
// so two concurrent creations can never share a code.
func (c *Coordinator) CreateGroup(ctx context.Context, name string) (string, error) {
	user, err := c.ident.CurrentUser(ctx)
	if err != nil {
		return "", err
	}

	for {
		code := c.genCode()

		taken, err := c.codeInUse(ctx, code)
		if err != nil {
			return "", err
		}
		if taken {
			codeCollisionCounter.Inc()
			c.logger.Printf("invite code collision (%s), drawing again", code)
			continue
		}

		groupID := c.newID()
		err = c.store.RunTransaction(ctx, func(tx remote.Tx) error {
			existing, err := tx.Query(groupsCollection, fieldEnterCode, code)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return errCodeTaken
			}

			if err := tx.Set(groupsCollection, groupID, remote.Fields{
				fieldGroupID:   groupID,
				fieldEnterCode: code,
				fieldGroupName: name,
				fieldLeaderUID: user.UID,
				fieldMembers:   []string{user.UID},
			}); err != nil {
				return err
			}
			return tx.SetMerge(usersCollection, user.UID, remote.Fields{fieldGroupID: groupID})
		})
		if errors.Is(err, errCodeTaken) {
			codeCollisionCounter.Inc()
			c.logger.Printf("invite code lost race (%s), drawing again", code)
			continue
		}
		if err != nil {
			recordTransaction("create", "error")
			return "", err
		}
		recordTransaction("create", "ok")
		return code, nil
	}
}

// JoinGroup adds the caller to the group matching the invite code. Membership
// append and groupId pointer flip happen in one transaction so no observable
// state has one side without the other.
func (c *Coordinator) JoinGroup(ctx context.Context, code string) error {
	user, err := c.ident.CurrentUser(ctx)
	if err != nil {
		return err
	}

	docs, err := c.store.Query(ctx, groupsCollection, fieldEnterCode, code)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return domain.ErrCodeNotFound
	}
	groupID := docs[0].ID

	err = c.store.RunTransaction(ctx, func(tx remote.Tx) error {
		doc, err := tx.Get(groupsCollection, groupID)
		if err != nil {
			return err
		}
		if !doc.Exists {
			// Dissolved between lookup and transaction.
			return domain.ErrCodeNotFound
		}

		group := groupFromDoc(doc)
		if group.HasMember(user.UID) {
			return domain.ErrAlreadyMember
		}

		members := append(group.Members, user.UID)
		if err := tx.SetMerge(groupsCollection, groupID, remote.Fields{fieldMembers: members}); err != nil {
			return err
		}
		return tx.SetMerge(usersCollection, user.UID, remote.Fields{fieldGroupID: groupID})
	})
	if err != nil {
		recordTransaction("join", "error")
		return err
	}
	recordTransaction("join", "ok")
	return nil
}

// LeaveGroup removes the caller from the group and clears the caller's
// groupId in the same transaction. The group document is deleted exactly when
// the last member leaves. The read-modify-write of the member list must stay
// transactional; concurrent joins and leaves mutate the same list.
func (c *Coordinator) LeaveGroup(ctx context.Context, groupID string) error {
	user, err := c.ident.CurrentUser(ctx)
	if err != nil {
		return err
	}

	err = c.store.RunTransaction(ctx, func(tx remote.Tx) error {
		doc, err := tx.Get(groupsCollection, groupID)
		if err != nil {
			return err
		}

		if doc.Exists {
			group := groupFromDoc(doc)
			remaining := make([]string, 0, len(group.Members))
			for _, m := range group.Members {
				if m != user.UID {
					remaining = append(remaining, m)
				}
			}

			if len(remaining) == 0 {
				if err := tx.Delete(groupsCollection, groupID); err != nil {
					return err
				}
			} else if err := tx.SetMerge(groupsCollection, groupID, remote.Fields{fieldMembers: remaining}); err != nil {
				return err
			}
		}

		return tx.SetMerge(usersCollection, user.UID, remote.Fields{fieldGroupID: ""})
	})
	if err != nil {
		recordTransaction("leave", "error")
		return err
	}
	recordTransaction("leave", "ok")
	return nil
}

// PublishSteps merge-writes the caller's current count into their user
// document, leaving unrelated fields (groupId in particular) untouched.
func (c *Coordinator) PublishSteps(ctx context.Context, steps int) error {
	user, err := c.ident.CurrentUser(ctx)
	if err != nil {
		return err
	}

	return c.store.SetMerge(ctx, usersCollection, user.UID, remote.Fields{
		fieldUID:   user.UID,
		fieldName:  user.DisplayName,
		fieldSteps: steps,
	})
}

// MyGroup returns the caller's group and its members ranked by step count.
// domain.ErrGroupNotFound means the caller currently has no group.
func (c *Coordinator) MyGroup(ctx context.Context) (domain.GroupInfo, []domain.UserStepInfo, error) {
	user, err := c.ident.CurrentUser(ctx)
	if err != nil {
		return domain.GroupInfo{}, nil, err
	}

	userDoc, err := c.store.Get(ctx, usersCollection, user.UID)
	if err != nil {
		return domain.GroupInfo{}, nil, err
	}
	groupID := userDoc.String(fieldGroupID)
	if groupID == "" {
		return domain.GroupInfo{}, nil, domain.ErrGroupNotFound
	}

	groupDoc, err := c.store.Get(ctx, groupsCollection, groupID)
	if err != nil {
		return domain.GroupInfo{}, nil, err
	}
	if !groupDoc.Exists {
		return domain.GroupInfo{}, nil, domain.ErrGroupNotFound
	}

	group := groupFromDoc(groupDoc)
	members, err := fetchMembers(ctx, c.store, group.Members)
	if err != nil {
		return domain.GroupInfo{}, nil, err
	}
	SortByRank(members)
	return group, members, nil
}

// DeleteAccount removes the caller entirely: the auth account first (so a
// stale-credential refusal aborts with nothing changed), then group
// membership, then the user document.
func (c *Coordinator) DeleteAccount(ctx context.Context) error {
	user, err := c.ident.CurrentUser(ctx)
	if err != nil {
		return err
	}

	if err := c.ident.DeleteAccount(ctx, user.UID); err != nil {
		return err
	}

	userDoc, err := c.store.Get(ctx, usersCollection, user.UID)
	if err != nil {
		return err
	}
	if groupID := userDoc.String(fieldGroupID); groupID != "" {
		if err := c.LeaveGroup(ctx, groupID); err != nil {
			return err
		}
	}

	return c.store.RunTransaction(ctx, func(tx remote.Tx) error {
		return tx.Delete(usersCollection, user.UID)
	})
}

func (c *Coordinator) codeInUse(ctx context.Context, code string) (bool, error) {
	docs, err := c.store.Query(ctx, groupsCollection, fieldEnterCode, code)
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

func groupFromDoc(doc remote.Document) domain.GroupInfo {
	return domain.GroupInfo{
		GroupID:   doc.ID,
		EnterCode: doc.String(fieldEnterCode),
		GroupName: doc.String(fieldGroupName),
		LeaderUID: doc.String(fieldLeaderUID),
		Members:   doc.Strings(fieldMembers),
	}
}

func userFromDoc(doc remote.Document) domain.UserStepInfo {
	return domain.UserStepInfo{
		UID:     doc.String(fieldUID),
		Name:    doc.String(fieldName),
		Steps:   doc.Int(fieldSteps),
		GroupID: doc.String(fieldGroupID),
	}
}

func fetchMembers(ctx context.Context, store remote.Store, uids []string) ([]domain.UserStepInfo, error) {
	members := make([]domain.UserStepInfo, 0, len(uids))
	for _, uid := range uids {
		doc, err := store.Get(ctx, usersCollection, uid)
		if err != nil {
			return nil, err
		}
		if !doc.Exists {
			continue
		}
		member := userFromDoc(doc)
		if member.UID == "" {
			member.UID = uid
		}
		members = append(members, member)
	}
	return members, nil
}
