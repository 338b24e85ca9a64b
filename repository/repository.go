package repository

import (
	"context"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (interface{}, error)
	GetAll(ctx context.Context, limit int, skip int) ([]interface{}, error)
	Save(ctx context.Context, docID string, data interface{}) error
	Update(ctx context.Context, id string, data interface{}) error
	Delete(ctx context.Context, id string) error
	// Find runs a mango _find query (equality and range selectors)
	Find(ctx context.Context, query map[string]interface{}) (interface{}, error)
	GetDBName() string
	GetClient() interface{}
}

// DBSelector selects one of the named document databases
type DBSelector interface {
	ChooseDB(dbName string) (Repository, error)
}
