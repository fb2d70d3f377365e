package mcqbank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrInvalidTable is returned for table names that are not month tables
var ErrInvalidTable = errors.New("invalid month table name")

var monthTablePattern = regexp.MustCompile(`^([a-z]+)([0-9]{2})_mcqs$`)

// DefaultMockTestLimits is the subject mix of a mock test
var DefaultMockTestLimits = map[Subject]int{
	SubjectMedicine: 70,
	SubjectPaeds:    50,
	SubjectGynae:    40,
	SubjectSurgery:  30,
}

// mockTestOrder is the order subjects are sampled in
var mockTestOrder = []Subject{SubjectMedicine, SubjectPaeds, SubjectGynae, SubjectSurgery}

// DB is the question store. Questions live in one table per exam month.
type DB struct {
	db       *sql.DB
	postgres bool
}

// OpenDB opens a database connection. driver is "sqlite3" or "postgres".
func OpenDB(driver, dsn string) (*DB, error) {
	if driver != "sqlite3" && driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; also keeps an in-memory sqlite database alive
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db: db, postgres: driver == "postgres"}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.db.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres
func (db *DB) rebind(query string) string {
	if !db.postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// MonthTableName returns the table holding questions of t's exam month,
// e.g. march25_mcqs
func MonthTableName(t time.Time) string {
	return fmt.Sprintf("%s%02d_mcqs", strings.ToLower(t.Month().String()), t.Year()%100)
}

// ValidateTableName checks that name is a month table name
func ValidateTableName(name string) error {
	m := monthTablePattern.FindStringSubmatch(name)
	if m == nil {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	if _, err := time.Parse("January", m[1]); err != nil {
		return fmt.Errorf("%w: %q has no month", ErrInvalidTable, name)
	}
	return nil
}

// ParseExamDate reads the exam month from a source file name such as
// "March 2025.pdf" or "pdf_files/March 2025.pdf:p438-452"
func ParseExamDate(sourceFile string) (time.Time, error) {
	name := filepath.Base(sourceFile)
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[:i]
	}
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".pdf") || strings.EqualFold(ext, ".json") {
		name = strings.TrimSuffix(name, ext)
	}
	t, err := time.Parse("January 2006", strings.TrimSpace(name))
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse exam date from %q: %w", sourceFile, err)
	}
	return t, nil
}

func (db *DB) idColumn() string {
	if db.postgres {
		return "SERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// CreateTables creates the given month tables and the history table if
// they don't exist
func (db *DB) CreateTables(ctx context.Context, tables ...string) error {
	queries := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS question_history (
			id %s,
			mcq_table TEXT NOT NULL,
			mcq_id INTEGER NOT NULL,
			exam_date DATE NOT NULL,
			source_file TEXT,
			UNIQUE (mcq_table, mcq_id, exam_date)
		)`, db.idColumn()),
	}

	for _, table := range tables {
		if err := ValidateTableName(table); err != nil {
			return err
		}
		queries = append(queries,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id %s,
				question_number TEXT,
				question_text TEXT NOT NULL,
				normalized_question TEXT NOT NULL UNIQUE,
				option_a TEXT,
				option_b TEXT,
				option_c TEXT,
				option_d TEXT,
				correct_answer CHAR(1) NOT NULL,
				explanation TEXT,
				subject TEXT NOT NULL CHECK (subject IN ('Surgery', 'Medicine', 'Gynae', 'Paeds')),
				source_file TEXT,
				exam_date DATE,
				appearance_count INTEGER NOT NULL DEFAULT 1,
				last_appearance DATE,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`, table, db.idColumn()),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_subject ON %s (subject)`, table, table),
		)
	}

	for _, query := range queries {
		if _, err := db.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", firstLine(query), err)
		}
	}
	return nil
}

// CreateYearTables creates the twelve month tables of year
func (db *DB) CreateYearTables(ctx context.Context, year int) error {
	tables := make([]string, 0, 12)
	for m := time.January; m <= time.December; m++ {
		tables = append(tables, MonthTableName(time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)))
	}
	return db.CreateTables(ctx, tables...)
}

// MonthTables lists the existing month tables, oldest first
func (db *DB) MonthTables(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE '%_mcqs'`
	if db.postgres {
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_name LIKE '%_mcqs'`
	}

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	type dated struct {
		name string
		at   time.Time
	}
	var tables []dated
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		m := monthTablePattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		at, err := time.Parse("January 06", m[1]+" "+m[2])
		if err != nil {
			continue
		}
		tables = append(tables, dated{name, at})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	sort.Slice(tables, func(i, j int) bool { return tables[i].at.Before(tables[j].at) })
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.name
	}
	return names, nil
}

// TableExists reports whether a month table exists
func (db *DB) TableExists(ctx context.Context, table string) (bool, error) {
	if err := ValidateTableName(table); err != nil {
		return false, err
	}
	tables, err := db.MonthTables(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if t == table {
			return true, nil
		}
	}
	return false, nil
}

// InsertResult describes what an upsert did
type InsertResult struct {
	ID              int64
	AppearanceCount int
}

// Updated reports whether the question was already stored
func (r InsertResult) Updated() bool {
	return r.AppearanceCount > 1
}

// Insert upserts m into table. A question whose fingerprint is already
// stored has its appearance count bumped and its explanation replaced.
// An appearance is recorded in question_history when the exam date can be
// read from sourceFile.
func (db *DB) Insert(ctx context.Context, table string, m *MergedMCQ, sourceFile string) (InsertResult, error) {
	if err := ValidateTableName(table); err != nil {
		return InsertResult{}, err
	}

	questionText := CleanText(m.QuestionText)
	normalized := NormalizeQuestion(questionText)
	if normalized == "" {
		return InsertResult{}, fmt.Errorf("question %s has no text", m.QuestionNumber)
	}

	options := make([]any, len(OptionLetters))
	for i, letter := range OptionLetters {
		options[i] = nullableText(m.Options[letter])
	}

	subject := m.Subject
	if !subject.Valid() {
		log.Printf("%s Unknown subject '%s' for MCQ %s, defaulting to Medicine", markWarn, subject, m.QuestionNumber)
		subject = SubjectMedicine
	}

	var examDate any
	examTime, err := ParseExamDate(sourceFile)
	if err != nil {
		if sourceFile != "" {
			log.Printf("%s %v", markWarn, err)
		}
	} else {
		examDate = examTime.Format(time.DateOnly)
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := db.rebind(fmt.Sprintf(`INSERT INTO %[1]s (
			question_number, question_text, normalized_question,
			option_a, option_b, option_c, option_d,
			correct_answer, explanation, subject, source_file, exam_date,
			appearance_count, last_appearance
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, CURRENT_DATE)
		ON CONFLICT (normalized_question) DO UPDATE SET
			appearance_count = %[1]s.appearance_count + 1,
			last_appearance = CURRENT_DATE,
			explanation = excluded.explanation
		RETURNING id, appearance_count`, table))

	args := []any{m.QuestionNumber, questionText, normalized}
	args = append(args, options...)
	args = append(args, m.CorrectAnswer, nullableText(CleanText(m.Explanation)), string(subject), sourceFile, examDate)

	var res InsertResult
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&res.ID, &res.AppearanceCount); err != nil {
		return InsertResult{}, fmt.Errorf("failed to upsert question %s: %w", m.QuestionNumber, err)
	}

	if examDate != nil {
		_, err := tx.ExecContext(ctx, db.rebind(`INSERT INTO question_history (mcq_table, mcq_id, exam_date, source_file)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (mcq_table, mcq_id, exam_date) DO NOTHING`),
			table, res.ID, examDate, sourceFile)
		if err != nil {
			return InsertResult{}, fmt.Errorf("failed to record history of question %s: %w", m.QuestionNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return InsertResult{}, fmt.Errorf("failed to commit question %s: %w", m.QuestionNumber, err)
	}
	return res, nil
}

// BatchResult counts the outcomes of a BatchInsert
type BatchResult struct {
	Inserted int
	Updated  int
	Rejected int
	Failed   int
}

// Successful returns the number of stored questions
func (r BatchResult) Successful() int {
	return r.Inserted + r.Updated
}

// Add accumulates other into r
func (r *BatchResult) Add(other BatchResult) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Rejected += other.Rejected
	r.Failed += other.Failed
}

// BatchInsert validates and upserts each question on its own. A rejected
// or failed question never stops the batch. Status is set on every
// question.
func (db *DB) BatchInsert(ctx context.Context, table string, mcqs []*MergedMCQ, sourceFile string, logger *LLMLogger) BatchResult {
	var result BatchResult
	for _, m := range mcqs {
		if ctx.Err() != nil {
			break
		}

		if err := Validate(m); err != nil {
			log.Printf("%s Skipping MCQ %s: %v", markWarn, m.QuestionNumber, err)
			m.Status = StatusRejected
			logger.LogQuestionResult(m.QuestionNumber, m.Status, err.Error())
			result.Rejected++
			continue
		}

		res, err := db.Insert(ctx, table, m, sourceFile)
		if err != nil {
			log.Printf("%s Error inserting MCQ %s: %v", markFail, m.QuestionNumber, err)
			m.Status = StatusFailed
			logger.LogQuestionResult(m.QuestionNumber, m.Status, err.Error())
			result.Failed++
			continue
		}

		if res.Updated() {
			m.Status = StatusUpdated
			result.Updated++
		} else {
			m.Status = StatusInserted
			result.Inserted++
		}
		log.Printf("%s %s MCQ %s (ID: %d, Appearances: %d)", markOK, statusVerb(m.Status), m.QuestionNumber, res.ID, res.AppearanceCount)
		logger.LogQuestionResult(m.QuestionNumber, m.Status, fmt.Sprintf("id %d, appearances %d", res.ID, res.AppearanceCount))
	}

	log.Printf("Batch insert: %s %d inserted, %d updated; %s %d rejected; %s %d failed",
		markOK, result.Inserted, result.Updated, markWarn, result.Rejected, markFail, result.Failed)
	return result
}

func statusVerb(s QuestionStatus) string {
	if s == StatusUpdated {
		return "Updated"
	}
	return "Inserted"
}

const selectColumns = `id, question_number, question_text, normalized_question,
	option_a, option_b, option_c, option_d, correct_answer, explanation,
	subject, source_file, exam_date, appearance_count, last_appearance`

// BySubject returns the questions of one subject in a month table, ordered
// by question number
func (db *DB) BySubject(ctx context.Context, table string, subject Subject) ([]PersistedMCQ, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	query := db.rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE subject = ?`, selectColumns, table))
	mcqs, err := db.query(ctx, table, query, string(subject))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s questions: %w", subject, err)
	}
	sortPersisted(mcqs, false)
	return mcqs, nil
}

// ByExamTable returns every question of a month table ordered by subject,
// then question number
func (db *DB) ByExamTable(ctx context.Context, table string) ([]PersistedMCQ, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s`, selectColumns, table)
	mcqs, err := db.query(ctx, table, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions of %s: %w", table, err)
	}
	sortPersisted(mcqs, true)
	return mcqs, nil
}

// RecentBySource returns the newest questions whose source file contains
// source
func (db *DB) RecentBySource(ctx context.Context, table, source string, limit int) ([]PersistedMCQ, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	query := db.rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE source_file LIKE ? ORDER BY id DESC LIMIT ?`, selectColumns, table))
	mcqs, err := db.query(ctx, table, query, "%"+source+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent questions: %w", err)
	}
	return mcqs, nil
}

// Count returns the number of questions in a month table
func (db *DB) Count(ctx context.Context, table string) (int, error) {
	if err := ValidateTableName(table); err != nil {
		return 0, err
	}
	var n int
	if err := db.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return n, nil
}

// History returns the recorded appearances of a stored question
func (db *DB) History(ctx context.Context, table string, id int64) ([]HistoryEntry, error) {
	rows, err := db.db.QueryContext(ctx, db.rebind(`SELECT mcq_table, mcq_id, exam_date, source_file
		FROM question_history WHERE mcq_table = ? AND mcq_id = ? ORDER BY exam_date`), table, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e      HistoryEntry
			date   nullDate
			source sql.NullString
		)
		if err := rows.Scan(&e.ExamTable, &e.MCQID, &date, &source); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.ExamDate = date.Time
		e.SourceFile = source.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (db *DB) query(ctx context.Context, table, query string, args ...any) ([]PersistedMCQ, error) {
	return queryMCQs(ctx, db.db, table, query, args...)
}

func queryMCQs(ctx context.Context, q querier, table, query string, args ...any) ([]PersistedMCQ, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mcqs []PersistedMCQ
	for rows.Next() {
		m, err := scanMCQ(rows)
		if err != nil {
			return nil, err
		}
		if m.ExamTable == "" {
			m.ExamTable = table
		}
		mcqs = append(mcqs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return mcqs, nil
}

func scanMCQ(rows *sql.Rows) (PersistedMCQ, error) {
	var (
		m                     PersistedMCQ
		number, explanation   sql.NullString
		source, subject       sql.NullString
		opts                  [4]sql.NullString
		examDate, lastAppears nullDate
		extra                 []any
		examTable             sql.NullString
	)

	cols, err := rows.Columns()
	if err != nil {
		return m, err
	}
	if len(cols) > 15 {
		extra = append(extra, &examTable)
	}

	dest := []any{
		&m.ID, &number, &m.QuestionText, &m.NormalizedQuestion,
		&opts[0], &opts[1], &opts[2], &opts[3], &m.CorrectAnswer, &explanation,
		&subject, &source, &examDate, &m.AppearanceCount, &lastAppears,
	}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return m, fmt.Errorf("failed to scan question: %w", err)
	}

	m.QuestionNumber = number.String
	m.Explanation = explanation.String
	m.Subject = Subject(subject.String)
	m.SourceFile = source.String
	m.ExamTable = examTable.String
	m.Options = make(map[string]string, 4)
	for i, letter := range OptionLetters {
		if opts[i].Valid && opts[i].String != "" {
			m.Options[letter] = opts[i].String
		}
	}
	if examDate.Valid {
		t := examDate.Time
		m.ExamDate = &t
	}
	if lastAppears.Valid {
		t := lastAppears.Time
		m.LastAppearance = &t
	}
	return m, nil
}

func sortPersisted(mcqs []PersistedMCQ, bySubject bool) {
	sort.SliceStable(mcqs, func(i, j int) bool {
		if bySubject && mcqs[i].Subject != mcqs[j].Subject {
			return mcqs[i].Subject < mcqs[j].Subject
		}
		ki, kj := questionNumberKey(mcqs[i].QuestionNumber), questionNumberKey(mcqs[j].QuestionNumber)
		if ki != kj {
			return ki < kj
		}
		return mcqs[i].QuestionNumber < mcqs[j].QuestionNumber
	})
}

// SubjectStats summarises one subject of a month table
type SubjectStats struct {
	Subject       Subject
	Total         int
	UniqueSources int
	EarliestDate  *time.Time
	LatestDate    *time.Time
	Repeated      int
}

// RepeatedQuestion is a question seen in more than one sitting
type RepeatedQuestion struct {
	QuestionNumber  string
	AppearanceCount int
}

// Statistics summarises a month table
type Statistics struct {
	Table        string
	Subjects     []SubjectStats
	MostRepeated []RepeatedQuestion
}

// Statistics gathers per-subject counts and the five most repeated
// questions of a month table
func (db *DB) Statistics(ctx context.Context, table string) (*Statistics, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}

	rows, err := db.db.QueryContext(ctx, fmt.Sprintf(`SELECT
			subject,
			COUNT(*),
			COUNT(DISTINCT source_file),
			MIN(exam_date),
			MAX(exam_date),
			SUM(CASE WHEN appearance_count > 1 THEN 1 ELSE 0 END)
		FROM %s
		GROUP BY subject
		ORDER BY subject`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	defer rows.Close()

	stats := &Statistics{Table: table}
	for rows.Next() {
		var (
			s                SubjectStats
			subject          string
			earliest, latest nullDate
		)
		if err := rows.Scan(&subject, &s.Total, &s.UniqueSources, &earliest, &latest, &s.Repeated); err != nil {
			return nil, fmt.Errorf("failed to scan statistics: %w", err)
		}
		s.Subject = Subject(subject)
		if earliest.Valid {
			t := earliest.Time
			s.EarliestDate = &t
		}
		if latest.Valid {
			t := latest.Time
			s.LatestDate = &t
		}
		stats.Subjects = append(stats.Subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statistics: %w", err)
	}

	repeated, err := db.db.QueryContext(ctx, fmt.Sprintf(`SELECT question_number, appearance_count
		FROM %s
		WHERE appearance_count > 1
		ORDER BY appearance_count DESC, id
		LIMIT 5`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to get repeated questions: %w", err)
	}
	defer repeated.Close()

	for repeated.Next() {
		var (
			r      RepeatedQuestion
			number sql.NullString
		)
		if err := repeated.Scan(&number, &r.AppearanceCount); err != nil {
			return nil, fmt.Errorf("failed to scan repeated question: %w", err)
		}
		r.QuestionNumber = number.String
		stats.MostRepeated = append(stats.MostRepeated, r)
	}
	return stats, repeated.Err()
}

// MockTest samples questions at random from every month table, limits[s]
// per subject, and shuffles the result. Each subject is sampled inside its
// own savepoint: a subject whose query fails is rolled back and skipped,
// the others still contribute.
func (db *DB) MockTest(ctx context.Context, limits map[Subject]int) ([]PersistedMCQ, error) {
	if limits == nil {
		limits = DefaultMockTestLimits
	}

	tables, err := db.MonthTables(ctx)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, nil
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var all []PersistedMCQ
	for _, subject := range mockTestOrder {
		limit := limits[subject]
		if limit <= 0 {
			continue
		}

		savepoint := "sp_" + strings.ToLower(string(subject))
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
			return nil, fmt.Errorf("failed to create savepoint: %w", err)
		}

		mcqs, err := queryMCQs(ctx, tx, "", db.mockTestQuery(tables), db.mockTestArgs(tables, subject, limit)...)
		if err != nil {
			log.Printf("%s Error sampling %s questions: %v", markFail, subject, err)
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return nil, fmt.Errorf("failed to roll back %s: %w", savepoint, rbErr)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return nil, fmt.Errorf("failed to release savepoint: %w", err)
		}

		VerboseLog("Sampled %d/%d %s questions", len(mcqs), limit, subject)
		all = append(all, mcqs...)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit mock test: %w", err)
	}

	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all, nil
}

func (db *DB) mockTestQuery(tables []string) string {
	parts := make([]string, len(tables))
	for i, table := range tables {
		parts[i] = fmt.Sprintf(`SELECT %s, '%s' AS exam_table FROM %s WHERE subject = ?`, selectColumns, table, table)
	}
	return db.rebind(`SELECT * FROM (` + strings.Join(parts, " UNION ALL ") + `) AS pool ORDER BY RANDOM() LIMIT ?`)
}

func (db *DB) mockTestArgs(tables []string, subject Subject, limit int) []any {
	args := make([]any, 0, len(tables)+1)
	for range tables {
		args = append(args, string(subject))
	}
	return append(args, limit)
}

// nullDate scans DATE columns from either driver. sqlite hands back
// time.Time for declared DATE columns and text for aggregates.
type nullDate struct {
	Time  time.Time
	Valid bool
}

func (d *nullDate) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Time, d.Valid = time.Time{}, false
		return nil
	case time.Time:
		d.Time, d.Valid = v, true
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into date", src)
	}
}

func (d *nullDate) parse(s string) error {
	s = strings.TrimSpace(s)
	if len(s) < len(time.DateOnly) {
		return fmt.Errorf("invalid date %q", s)
	}
	t, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)])
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time, d.Valid = t, true
	return nil
}

func nullableText(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return sql.NullString{}
	}
	return sql.NullString{String: CleanText(s), Valid: true}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " ..."
	}
	return s
}
