package main

import (
	"time"

	"github.com/burugo/record"
)

// User is the entity the demo command works with.
type User struct {
	record.BaseModel
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at,omitempty"`
}

func (User) TableName() string { return "users" }

func userColumns() []record.Column {
	return []record.Column{
		record.NewColumn("id", "INTEGER").PK(),
		record.NewColumn("name", "TEXT").NotNull(),
		record.NewColumn("email", "TEXT").NotNull().Uniq(),
		record.NewColumn("created_at", "TIMESTAMP").WithDefault("CURRENT_TIMESTAMP"),
	}
}
