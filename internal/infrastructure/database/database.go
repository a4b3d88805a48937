package database

import (
	"strings"

	"farmoracle-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a GORM DB from DSN. postgres:// URLs and key=value DSNs go to
// Postgres; anything else is treated as a SQLite path (":memory:" included).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind connection poolers.
func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if isPostgres(dsn) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), cfg)
	}
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting across pool connections.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// AutoMigrate creates the ledger tables and seeds the counters at zero.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Listing{},
		&domain.Counter{},
		&domain.OwnerListing{},
		&domain.BuyerPurchase{},
		&domain.Settlement{},
		&domain.Account{},
		&domain.LedgerEvent{},
	); err != nil {
		return err
	}
	for _, name := range []string{domain.CounterListing, domain.CounterEvent} {
		c := domain.Counter{Name: name}
		if err := db.Where(domain.Counter{Name: name}).FirstOrCreate(&c).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ping checks the underlying connection.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// NextSequence hands out the next value of the named counter inside tx. The
// UPDATE takes a row lock on Postgres, so concurrent transactions drawing from
// the same counter are serialized until commit.
func NextSequence(tx *gorm.DB, name string) (uint64, error) {
	res := tx.Model(&domain.Counter{}).Where("name = ?", name).UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if err := tx.Create(&domain.Counter{Name: name, Value: 1}).Error; err != nil {
			return 0, err
		}
		return 0, nil
	}
	var c domain.Counter
	if err := tx.Where("name = ?", name).First(&c).Error; err != nil {
		return 0, err
	}
	return c.Value - 1, nil
}

// CurrentSequence returns how many values the named counter has handed out.
func CurrentSequence(db *gorm.DB, name string) (uint64, error) {
	var c domain.Counter
	err := db.Where("name = ?", name).Limit(1).Find(&c).Error
	return c.Value, err
}

// Pinger adapts a *gorm.DB to the health check's Ping() error.
type Pinger struct {
	DB *gorm.DB
}

func (p Pinger) Ping() error {
	return Ping(p.DB)
}
