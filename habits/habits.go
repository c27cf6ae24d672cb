// Package habits is Wheatley's sqlite-backed habit tracker.
package habits

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is where the tracker keeps its database when the host does
// not choose a path.
const DefaultDBPath = "wheatley.db"

const schema = `
CREATE TABLE IF NOT EXISTS habits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	habit_name TEXT NOT NULL,
	streak INTEGER DEFAULT 0,
	last_completed DATETIME,
	reminder_time TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	completed INTEGER DEFAULT 0
)`

// Habit is one tracked habit for one user.
type Habit struct {
	UserID        string
	Name          string
	Streak        int
	LastCompleted *time.Time
	ReminderTime  string
}

// Store wraps the habits database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the habit database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening habit database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating habits table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Create records a new habit for the user with an optional reminder time.
func (s *Store) Create(ctx context.Context, userID, name, reminderTime string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO habits (user_id, habit_name, reminder_time) VALUES (?, ?, ?)`,
		userID, name, reminderTime)
	if err != nil {
		return fmt.Errorf("creating habit %q: %w", name, err)
	}
	return nil
}

// List returns the user's habits.
func (s *Store) List(ctx context.Context, userID string) ([]Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT habit_name, streak, last_completed, reminder_time FROM habits WHERE user_id = ? ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	defer rows.Close()

	var habits []Habit
	for rows.Next() {
		h := Habit{UserID: userID}
		var last any
		var reminder sql.NullString
		if err := rows.Scan(&h.Name, &h.Streak, &last, &reminder); err != nil {
			return nil, fmt.Errorf("scanning habit: %w", err)
		}
		h.LastCompleted = asTime(last)
		h.ReminderTime = reminder.String
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// MarkCompleted bumps the streak and stamps the completion time.
func (s *Store) MarkCompleted(ctx context.Context, userID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE habits SET streak = streak + 1, last_completed = DATETIME('now'), completed = 1
		 WHERE user_id = ? AND habit_name = ?`,
		userID, name)
	if err != nil {
		return fmt.Errorf("completing habit %q: %w", name, err)
	}
	return noneUpdated(res, name)
}

// ResetStreak zeroes the streak and clears the completion time.
func (s *Store) ResetStreak(ctx context.Context, userID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE habits SET streak = 0, last_completed = NULL WHERE user_id = ? AND habit_name = ?`,
		userID, name)
	if err != nil {
		return fmt.Errorf("resetting habit %q: %w", name, err)
	}
	return noneUpdated(res, name)
}

// UpdateReminder changes the habit's reminder time.
func (s *Store) UpdateReminder(ctx context.Context, userID, name, newTime string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE habits SET reminder_time = ?, updated_at = DATETIME('now') WHERE user_id = ? AND habit_name = ?`,
		newTime, userID, name)
	if err != nil {
		return fmt.Errorf("updating habit %q: %w", name, err)
	}
	return noneUpdated(res, name)
}

// Delete removes the habit.
func (s *Store) Delete(ctx context.Context, userID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM habits WHERE user_id = ? AND habit_name = ?`, userID, name)
	if err != nil {
		return fmt.Errorf("deleting habit %q: %w", name, err)
	}
	return noneUpdated(res, name)
}

// All returns every habit across users, with reminder times and streaks.
func (s *Store) All(ctx context.Context) ([]Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, habit_name, reminder_time, streak FROM habits ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing all habits: %w", err)
	}
	defer rows.Close()

	var habits []Habit
	for rows.Next() {
		var h Habit
		var reminder sql.NullString
		if err := rows.Scan(&h.UserID, &h.Name, &reminder, &h.Streak); err != nil {
			return nil, fmt.Errorf("scanning habit: %w", err)
		}
		h.ReminderTime = reminder.String
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// asTime normalizes a DATETIME column value. Depending on how the row was
// written, the driver hands back either a time.Time or the raw text.
func asTime(v any) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return &t
	case string:
		return parseSQLiteTime(t)
	case []byte:
		return parseSQLiteTime(string(t))
	}
	return nil
}

func parseSQLiteTime(s string) *time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func noneUpdated(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no habit named %q", name)
	}
	return nil
}
