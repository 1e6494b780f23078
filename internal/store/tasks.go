package store

import "fmt"

// Task is a durable retry-queue entry.
type Task struct {
	ID        int64
	Kind      string
	Payload   string
	Attempts  int
	State     string // pending, running, done, failed
	Priority  int
	LastError string
	NextRunTs int64
}

// EnqueueTask inserts a new pending task.
func (s *Store) EnqueueTask(kind, payloadJSON string, priority int) (int64, error) {
	res, err := s.q.Exec(`INSERT INTO tasks (kind, payload_json, state, priority, next_run_ts) VALUES (?,?, 'pending', ?, ?)`,
		kind, payloadJSON, priority, Now())
	if err != nil {
		return 0, fmt.Errorf("enqueue task: %w", err)
	}
	return res.LastInsertId()
}

// ClaimDueTasks selects up to limit pending tasks whose next_run_ts has
// elapsed and marks them running, returning the claimed set.
func (s *Store) ClaimDueTasks(limit int) ([]*Task, error) {
	rows, err := s.q.Query(`SELECT id, kind, payload_json, attempts, state, priority, last_error, next_run_ts
		FROM tasks WHERE state='pending' AND next_run_ts<=? ORDER BY priority DESC, next_run_ts LIMIT ?`, Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("claim due tasks: %w", err)
	}
	var claimed []*Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Kind, &t.Payload, &t.Attempts, &t.State, &t.Priority, &t.LastError, &t.NextRunTs); err != nil {
			rows.Close()
			return nil, err
		}
		claimed = append(claimed, &t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, t := range claimed {
		if _, err := s.q.Exec(`UPDATE tasks SET state='running' WHERE id=?`, t.ID); err != nil {
			return nil, fmt.Errorf("mark task running: %w", err)
		}
	}
	return claimed, nil
}

// CompleteTask marks a task done.
func (s *Store) CompleteTask(id int64) error {
	_, err := s.q.Exec(`UPDATE tasks SET state='done' WHERE id=?`, id)
	return err
}

// FailTask marks a task failed, recording the error and bumping attempts;
// if attempts remain under maxAttempts it is rescheduled as pending with
// a linear backoff (backoffSeconds times the new attempt count), otherwise
// it stays failed for good.
func (s *Store) FailTask(id int64, errMsg string, maxAttempts int, backoffSeconds int64) error {
	var attempts int
	if err := s.q.QueryRow(`SELECT attempts FROM tasks WHERE id=?`, id).Scan(&attempts); err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	attempts++
	if attempts >= maxAttempts {
		_, err := s.q.Exec(`UPDATE tasks SET state='failed', attempts=?, last_error=? WHERE id=?`, attempts, errMsg, id)
		return err
	}
	nextRun := Now() + backoffSeconds*int64(attempts)
	_, err := s.q.Exec(`UPDATE tasks SET state='pending', attempts=?, last_error=?, next_run_ts=? WHERE id=?`, attempts, errMsg, nextRun, id)
	return err
}

// CountFailedTasks returns (total failed, high_priority failed) in one
// aggregate query, per spec.md §4.3's count_failed_tasks contract.
func (s *Store) CountFailedTasks(highPriorityThreshold int) (total, highPriority int, err error) {
	row := s.q.QueryRow(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN priority>=? THEN 1 ELSE 0 END),0)
		FROM tasks WHERE state='failed'`, highPriorityThreshold)
	if err := row.Scan(&total, &highPriority); err != nil {
		return 0, 0, fmt.Errorf("count failed tasks: %w", err)
	}
	return total, highPriority, nil
}
