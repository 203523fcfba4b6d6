package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/janisto/lostcat/internal/wizard"
)

const (
	sessionsCollection = "sessions"
	// Firestore caps documents at 1 MiB; leave room for the other fields.
	maxFirestorePhotoBytes = 900 << 10
)

type firestorePhoto struct {
	ContentType string `firestore:"content_type"`
	Data        []byte `firestore:"data"`
	Width       int    `firestore:"width"`
	Height      int    `firestore:"height"`
}

type firestoreProfile struct {
	Name            string          `firestore:"name"`
	Breed           string          `firestore:"breed"`
	Color           string          `firestore:"color"`
	LastSeenAddress string          `firestore:"last_seen_address"`
	LastSeenDate    string          `firestore:"last_seen_date"`
	OwnerName       string          `firestore:"owner_name"`
	Phone           string          `firestore:"phone"`
	Description     string          `firestore:"description"`
	Photo           *firestorePhoto `firestore:"photo"`
	Features        []string        `firestore:"features"`
}

// firestoreSession maps to the Firestore document structure.
type firestoreSession struct {
	Step                int              `firestore:"step"`
	Profile             firestoreProfile `firestore:"profile"`
	Generating          bool             `firestore:"generating"`
	GenerationSeq       int64            `firestore:"generation_seq"`
	GenerationStartedAt time.Time        `firestore:"generation_started_at"`
	CreatedAt           time.Time        `firestore:"created_at"`
	UpdatedAt           time.Time        `firestore:"updated_at"`
	ExpiresAt           time.Time        `firestore:"expires_at"`
}

func toFirestore(s *Session) (firestoreSession, error) {
	p := s.State.Profile
	fs := firestoreSession{
		Step: int(s.State.Step),
		Profile: firestoreProfile{
			Name:            p.Name,
			Breed:           p.Breed,
			Color:           p.Color,
			LastSeenAddress: p.LastSeenAddress,
			LastSeenDate:    p.LastSeenDate,
			OwnerName:       p.OwnerName,
			Phone:           p.Phone,
			Description:     p.Description,
			Features:        p.Features,
		},
		Generating:          s.Generating,
		GenerationSeq:       int64(s.GenerationSeq), //nolint:gosec // sequence never approaches int64 max
		GenerationStartedAt: s.GenerationStartedAt,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
		ExpiresAt:           s.ExpiresAt,
	}
	if p.Photo != nil {
		if len(p.Photo.Data) > maxFirestorePhotoBytes {
			return firestoreSession{}, ErrTooLarge
		}
		fs.Profile.Photo = &firestorePhoto{
			ContentType: p.Photo.ContentType,
			Data:        p.Photo.Data,
			Width:       p.Photo.Width,
			Height:      p.Photo.Height,
		}
	}
	return fs, nil
}

func fromFirestore(id string, fs firestoreSession) *Session {
	p := wizard.Profile{
		Name:            fs.Profile.Name,
		Breed:           fs.Profile.Breed,
		Color:           fs.Profile.Color,
		LastSeenAddress: fs.Profile.LastSeenAddress,
		LastSeenDate:    fs.Profile.LastSeenDate,
		OwnerName:       fs.Profile.OwnerName,
		Phone:           fs.Profile.Phone,
		Description:     fs.Profile.Description,
		Features:        fs.Profile.Features,
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if ph := fs.Profile.Photo; ph != nil {
		p.Photo = &wizard.Photo{ContentType: ph.ContentType, Data: ph.Data, Width: ph.Width, Height: ph.Height}
	}
	return &Session{
		ID:                  id,
		State:               wizard.State{Step: wizard.Step(fs.Step), Profile: p},
		Generating:          fs.Generating,
		GenerationSeq:       uint64(fs.GenerationSeq), //nolint:gosec // written from a uint64
		GenerationStartedAt: fs.GenerationStartedAt,
		CreatedAt:           fs.CreatedAt,
		UpdatedAt:           fs.UpdatedAt,
		ExpiresAt:           fs.ExpiresAt,
	}
}

// FirestoreStore implements Store using Firestore with transactions. Expired
// documents read as not found; a Firestore TTL policy on expires_at removes
// them eventually.
type FirestoreStore struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client, now: time.Now}
}

func (s *FirestoreStore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(sessionsCollection).Doc(id)
}

// Create stores a new session; Firestore refuses an existing id.
func (s *FirestoreStore) Create(ctx context.Context, sess *Session) error {
	fs, err := toFirestore(sess)
	if err != nil {
		return err
	}
	if _, err := s.doc(sess.ID).Create(ctx, fs); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrAlreadyExists
		}
		return fmt.Errorf("creating session document: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*Session, error) {
	doc, err := s.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.decode(doc)
}

func (s *FirestoreStore) decode(doc *firestore.DocumentSnapshot) (*Session, error) {
	var fs firestoreSession
	if err := doc.DataTo(&fs); err != nil {
		return nil, fmt.Errorf("decoding session document: %w", err)
	}
	sess := fromFirestore(doc.Ref.ID, fs)
	if sess.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Update applies fn in a transaction for atomicity.
func (s *FirestoreStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	docRef := s.doc(id)

	var result *Session

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}

		sess, err := s.decode(doc)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}

		fs, err := toFirestore(sess)
		if err != nil {
			return err
		}
		if err := tx.Set(docRef, fs); err != nil {
			return err
		}

		result = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a session using a transaction to ensure it exists. An
// expired document is removed too but still reported as not found.
func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	docRef := s.doc(id)

	var expired bool
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		expired = false
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		if _, err := s.decode(doc); errors.Is(err, ErrNotFound) {
			expired = true
		} else if err != nil {
			return err
		}
		return tx.Delete(docRef)
	})
	if err != nil {
		return err
	}
	if expired {
		return ErrNotFound
	}
	return nil
}

// Compile-time interface check
var _ Store = (*FirestoreStore)(nil)
