package repositories

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/musicschool/internal/pkg/kvstore"
)

// Directory drivers
const (
	DirectoryPostgres = "postgres"
	DirectoryKV       = "kv"
)

// Repositories holds all the repository instances
type Repositories struct {
	StudentRepository   StudentRepository
	VideoLinkRepository *VideoLinkRepository
}

// NewRepositories initializes all repositories. db may be nil when the
// directory driver is kv.
func NewRepositories(driver string, db *pgxpool.Pool, store kvstore.Store) (*Repositories, error) {
	var students StudentRepository
	switch driver {
	case DirectoryPostgres:
		if db == nil {
			return nil, fmt.Errorf("directory driver %q requires a database connection", driver)
		}
		students = NewPostgresStudentRepository(db)
	case DirectoryKV, "":
		students = NewKVStudentRepository(store)
	default:
		return nil, fmt.Errorf("unknown directory driver %q", driver)
	}

	return &Repositories{
		StudentRepository:   students,
		VideoLinkRepository: NewVideoLinkRepository(store),
	}, nil
}
