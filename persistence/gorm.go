package persistence

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// node is one scalar leaf of the tree.
type node struct {
	Path  string `gorm:"primaryKey"`
	Value datatypes.JSON
}

func (node) TableName() string {
	return "nodes"
}

// GormMedium stores leaves in a sqlite or postgres table.
type GormMedium struct {
	db *gorm.DB
}

func OpenGormMedium(dbType, dsn string) (*GormMedium, error) {
	if dsn == "" {
		return nil, fmt.Errorf("no dsn configured for local store type %s", dbType)
	}
	var dial gorm.Dialector
	switch dbType {
	case "postgres":
		dial = postgres.Open(dsn)

	case "sqlite":
		dial = sqlite.Open(dsn)

	default:
		return nil, fmt.Errorf("invalid gorm configuration")
	}
	db, err := gorm.Open(dial, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if dbType == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&node{}); err != nil {
		return nil, err
	}
	return &GormMedium{db: db}, nil
}

func (m *GormMedium) update(fn func(tx leafTx) error) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		return fn(gormTx{tx})
	})
}

func (m *GormMedium) view(fn func(tx leafTx) error) error {
	return fn(gormTx{m.db})
}

func (m *GormMedium) close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormTx struct {
	db *gorm.DB
}

func (t gormTx) get(key string) (string, bool, error) {
	var n node
	err := t.db.Where("path = ?", key).Take(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(n.Value), true, nil
}

func (t gormTx) set(key, value string) error {
	return t.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&node{Path: key, Value: datatypes.JSON(value)}).Error
}

func (t gormTx) del(key string) error {
	return t.db.Where("path = ?", key).Delete(&node{}).Error
}

func (t gormTx) scan(prefix string, fn func(key, value string) bool) error {
	q := t.db.Order("path")
	if prefix != "" {
		q = q.Where("path LIKE ? ESCAPE '!'", escapeLike(prefix)+"%")
	}
	nodes := make([]node, 0)
	if err := q.Find(&nodes).Error; err != nil {
		return err
	}
	for _, n := range nodes {
		if !fn(n.Path, string(n.Value)) {
			break
		}
	}
	return nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
