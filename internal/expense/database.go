package expense

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	expenseBucketName = "expenses"
	billBucketName    = "bills"
)

// DB defines the interface for database operations
type DB interface {
	// SaveExpense saves an expense to the database
	SaveExpense(expense *Expense) error

	// GetExpense retrieves an expense by ID
	GetExpense(id string) (*Expense, error)

	// ListExpenses returns all expenses
	ListExpenses() ([]*Expense, error)

	// DeleteExpense removes an expense from the database
	DeleteExpense(id string) error

	// ClearExpenses removes every expense
	ClearExpenses() error

	// CountExpenses returns the number of stored expenses
	CountExpenses() (int, error)

	// SaveBill saves a scanned bill to the database
	SaveBill(upload *BillUpload) error

	// GetBill retrieves a scanned bill by ID
	GetBill(id string) (*BillUpload, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{expenseBucketName, billBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func put(tx *bbolt.Tx, bucket, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", bucket, err)
	}
	return tx.Bucket([]byte(bucket)).Put([]byte(id), data)
}

func get(tx *bbolt.Tx, bucket, id string, v any) error {
	data := tx.Bucket([]byte(bucket)).Get([]byte(id))
	if data == nil {
		return fmt.Errorf("%s %s: %w", bucket, id, ErrNotFound)
	}
	return json.Unmarshal(data, v)
}

// SaveExpense saves an expense to the database
func (b *BoltDB) SaveExpense(expense *Expense) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, expenseBucketName, expense.ID, expense)
	})
}

// GetExpense retrieves an expense by ID
func (b *BoltDB) GetExpense(id string) (*Expense, error) {
	var expense Expense
	err := b.db.View(func(tx *bbolt.Tx) error {
		return get(tx, expenseBucketName, id, &expense)
	})
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

// ListExpenses returns all expenses in key order
func (b *BoltDB) ListExpenses() ([]*Expense, error) {
	expenses := make([]*Expense, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(expenseBucketName)).ForEach(func(k, v []byte) error {
			var expense Expense
			if err := json.Unmarshal(v, &expense); err != nil {
				return fmt.Errorf("unmarshaling expense: %w", err)
			}
			expenses = append(expenses, &expense)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// DeleteExpense removes an expense from the database
func (b *BoltDB) DeleteExpense(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(expenseBucketName)).Delete([]byte(id))
	})
}

// ClearExpenses drops and recreates the expense bucket
func (b *BoltDB) ClearExpenses() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(expenseBucketName)); err != nil {
			return fmt.Errorf("deleting expense bucket: %w", err)
		}
		_, err := tx.CreateBucket([]byte(expenseBucketName))
		return err
	})
}

// CountExpenses returns the number of stored expenses
func (b *BoltDB) CountExpenses() (int, error) {
	var n int
	err := b.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(expenseBucketName)).Stats().KeyN
		return nil
	})
	return n, err
}

// SaveBill saves a scanned bill to the database
func (b *BoltDB) SaveBill(upload *BillUpload) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, billBucketName, upload.ID, upload)
	})
}

// GetBill retrieves a scanned bill by ID
func (b *BoltDB) GetBill(id string) (*BillUpload, error) {
	var upload BillUpload
	err := b.db.View(func(tx *bbolt.Tx) error {
		return get(tx, billBucketName, id, &upload)
	})
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
