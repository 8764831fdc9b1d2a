package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	pkgerrors "github.com/BienNg/eduinsight-sub000/pkg/errors"
)

type boltStore struct {
	db *bbolt.DB
}

// NewBoltStore 基于 bbolt 的记录存储（每个集合一个 bucket）
func NewBoltStore(db *bbolt.DB) RecordStore {
	return &boltStore{db: db}
}

func (s *boltStore) bucket(tx *bbolt.Tx, collection string) (*bbolt.Bucket, error) {
	b := tx.Bucket([]byte(collection))
	if b == nil {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrUnknownCollection, collection)
	}
	return b, nil
}

func (s *boltStore) Create(ctx context.Context, collection string, data any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	raw, err := encodeDoc(id, data)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, collection)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), raw)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *boltStore) Set(ctx context.Context, collection, id string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encodeDoc(id, data)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, collection)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), raw)
	})
}

func (s *boltStore) GetByID(ctx context.Context, collection, id string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, collection)
		if err != nil {
			return err
		}
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %s/%s", pkgerrors.ErrRecordNotFound, collection, id)
		}
		return json.Unmarshal(v, out)
	})
}

func (s *boltStore) List(ctx context.Context, collection string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var raws [][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, collection)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			// bbolt 的值只在事务内有效，需要拷贝
			raws = append(raws, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return err
	}
	return decodeList(raws, out)
}

func (s *boltStore) Update(ctx context.Context, collection, id string, partial map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var merged map[string]any
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, collection)
		if err != nil {
			return err
		}
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %s/%s", pkgerrors.ErrRecordNotFound, collection, id)
		}
		doc, raw, err := mergeDoc(v, partial)
		if err != nil {
			return err
		}
		merged = doc
		return b.Put([]byte(id), raw)
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *boltStore) FindBy(ctx context.Context, collection, field string, value any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var raws [][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, collection)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			if fieldMatches(v, field, value) {
				raws = append(raws, append([]byte(nil), v...))
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	return decodeList(raws, out)
}

func (s *boltStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, collection)
		if err != nil {
			return err
		}
		return b.Delete([]byte(id))
	})
}

func (s *boltStore) Close() error {
	return s.db.Close()
}
