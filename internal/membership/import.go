// Package membership adds members to events in bulk.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/veriface/internal/attendance"
	"github.com/kozaktomas/veriface/internal/constants"
	"github.com/kozaktomas/veriface/internal/credential"
	"github.com/kozaktomas/veriface/internal/database"
)

var (
	// ErrTooManyRows is returned when a batch exceeds the configured row limit.
	ErrTooManyRows = errors.New("too many rows")

	// ErrImportFailed is returned when the commit phase fails; nothing was written.
	ErrImportFailed = errors.New("failed to add members to event")
)

// ImportRow is one requested member. Line is the source line number used
// in error reports; zero means the 1-based position in the batch.
type ImportRow struct {
	Line      int
	FirstName string
	LastName  string
	Email     string
}

// RowError explains why a row was rejected.
type RowError struct {
	Row       int    `json:"row_number"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Message   string `json:"error_message"`
}

// Credential is the generated initial password of a newly created member.
type Credential struct {
	Email    string
	Password string
}

// ImportResult reports a bulk import. When Failed is set nothing was
// written and Errors lists every rejected row.
type ImportResult struct {
	BatchID uuid.UUID
	Failed  bool
	Message string

	TotalRows   int
	ValidRows   int
	InvalidRows int
	Errors      []RowError

	NewMembersCreated    int
	ExistingMembersAdded int
	AlreadyInEvent       int

	// Projected is what the validation pass expected the valid rows to do.
	// The write phase resolves every row again under the event lock, so the
	// final counts above win if members changed in between.
	Projected Projection

	// Credentials holds the initial passwords of created members so the
	// operator can hand them out.
	Credentials []Credential
}

// Projection counts the valid rows by the action the validation pass
// planned for them.
type Projection struct {
	Create  int `json:"create"`
	Add     int `json:"add"`
	Already int `json:"already_in_event"`
}

// rowAction is what the write phase is expected to do with a valid row.
type rowAction uint8

const (
	actionCreate  rowAction = iota + 1 // no member with this email yet
	actionAdd                          // member exists, not in the event
	actionAlready                      // member exists and already belongs to the event
)

// plannedRow is a valid row with the action looked up in the validation pass.
type plannedRow struct {
	normalizedRow
	action   rowAction
	memberID int64
}

func (p *Projection) count(a rowAction) {
	switch a {
	case actionCreate:
		p.Create++
	case actionAdd:
		p.Add++
	case actionAlready:
		p.Already++
	}
}

// ImporterOptions configures an Importer. Zero values use the package constants.
type ImporterOptions struct {
	MaxRows        int
	PasswordLength int
}

// Importer validates and applies bulk membership imports.
type Importer struct {
	store          database.Store
	hasher         credential.Hasher
	validate       *validator.Validate
	maxRows        int
	passwordLength int
}

// NewImporter creates an Importer.
func NewImporter(store database.Store, hasher credential.Hasher, opts ImporterOptions) *Importer {
	if opts.MaxRows <= 0 {
		opts.MaxRows = constants.MaxImportRows
	}
	if opts.PasswordLength <= 0 {
		opts.PasswordLength = constants.DefaultPasswordLength
	}
	return &Importer{
		store:          store,
		hasher:         hasher,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		maxRows:        opts.MaxRows,
		passwordLength: opts.PasswordLength,
	}
}

// MaxRows returns the configured row limit.
func (im *Importer) MaxRows() int {
	return im.maxRows
}

// normalizedRow is a row after trimming, with the rules it must satisfy.
type normalizedRow struct {
	Row       int
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"required,email"`
}

var fieldMessages = map[string]string{
	"FirstName.required": "First name is required",
	"LastName.required":  "Last name is required",
	"Email.required":     "Email is required",
	"Email.email":        "Invalid email format",
}

func normalizeRow(i int, r ImportRow) normalizedRow {
	row := r.Line
	if row <= 0 {
		row = i + 1
	}
	return normalizedRow{
		Row:       row,
		FirstName: norm.NFC.String(strings.TrimSpace(r.FirstName)),
		LastName:  norm.NFC.String(strings.TrimSpace(r.LastName)),
		Email:     strings.ToLower(strings.TrimSpace(r.Email)),
	}
}

// check returns the message of the first rule the row breaks, or "".
func (im *Importer) check(row normalizedRow) string {
	err := im.validate.Struct(row)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error: " + err.Error()
	}
	fe := verrs[0]
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("Validation error: %s failed %s", fe.Field(), fe.Tag())
}

// BulkAddMembers adds every row to the event, creating members that do not
// exist yet. Rows are validated first; if any row is invalid the result
// lists all invalid rows and nothing is written. Otherwise every row is
// applied in one unit of work.
func (im *Importer) BulkAddMembers(ctx context.Context, eventID int64, rows []ImportRow) (*ImportResult, error) {
	if len(rows) > im.maxRows {
		return nil, fmt.Errorf("%w: %d rows, maximum is %d", ErrTooManyRows, len(rows), im.maxRows)
	}

	result := &ImportResult{BatchID: uuid.New(), TotalRows: len(rows)}

	planned, err := im.validateRows(ctx, eventID, rows, result)
	if err != nil {
		return nil, err
	}
	if len(result.Errors) > 0 {
		result.Failed = true
		result.InvalidRows = len(result.Errors)
		result.ValidRows = len(rows) - result.InvalidRows
		result.Message = "Validation failed. No members were added to the event."
		log.Printf("Import %s for event %d rejected: %d of %d rows invalid",
			result.BatchID, eventID, result.InvalidRows, len(rows))
		return result, nil
	}
	result.ValidRows = len(rows)

	if err := im.apply(ctx, eventID, planned, result); err != nil {
		log.Printf("Import %s for event %d rolled back: %v", result.BatchID, eventID, err)
		if errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w (batch %s)", ErrImportFailed, result.BatchID)
	}

	result.Message = fmt.Sprintf("Successfully added %d members to event %d",
		result.NewMembersCreated+result.ExistingMembersAdded, eventID)
	log.Printf("Import %s for event %d: %d created, %d added, %d already members",
		result.BatchID, eventID, result.NewMembersCreated, result.ExistingMembersAdded, result.AlreadyInEvent)
	if p := result.Projected; p.Create != result.NewMembersCreated || p.Add != result.ExistingMembersAdded || p.Already != result.AlreadyInEvent {
		log.Printf("Import %s: members changed during import (projected %d/%d/%d)",
			result.BatchID, p.Create, p.Add, p.Already)
	}
	return result, nil
}

// validateRows is the read-only phase. Row errors are appended to result and
// every valid row is resolved to the member and membership it refers to.
func (im *Importer) validateRows(ctx context.Context, eventID int64, rows []ImportRow, result *ImportResult) ([]plannedRow, error) {
	planned := make([]plannedRow, 0, len(rows))
	firstSeen := make(map[string]int, len(rows))

	err := im.store.WithReadTx(ctx, func(tx database.Tx) error {
		if _, err := tx.GetEvent(ctx, eventID); err != nil {
			return err
		}

		for i, r := range rows {
			row := normalizeRow(i, r)

			msg := im.check(row)
			if msg == "" {
				if prev, dup := firstSeen[row.Email]; dup {
					msg = fmt.Sprintf("Duplicate email found (also appears in row %d)", prev)
				}
			}
			if msg != "" {
				result.Errors = append(result.Errors, RowError{
					Row:       row.Row,
					FirstName: row.FirstName,
					LastName:  row.LastName,
					Email:     row.Email,
					Message:   msg,
				})
				continue
			}
			firstSeen[row.Email] = row.Row

			p, err := resolveRow(ctx, tx, eventID, row)
			if err != nil {
				return fmt.Errorf("row %d: %w", row.Row, err)
			}
			result.Projected.count(p.action)
			planned = append(planned, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return planned, nil
}

// resolveRow looks up the member behind row and whether they already belong
// to the event.
func resolveRow(ctx context.Context, tx database.Tx, eventID int64, row normalizedRow) (plannedRow, error) {
	p := plannedRow{normalizedRow: row}
	member, err := tx.GetMemberByEmail(ctx, row.Email)
	switch {
	case errors.Is(err, database.ErrNotFound):
		p.action = actionCreate
		return p, nil
	case err != nil:
		return p, err
	}

	p.memberID = member.ID
	isMember, err := tx.HasMembership(ctx, member.ID, eventID)
	if err != nil {
		return p, err
	}
	if isMember {
		p.action = actionAlready
	} else {
		p.action = actionAdd
	}
	return p, nil
}

// apply is the write phase. Any error rolls back the whole batch.
func (im *Importer) apply(ctx context.Context, eventID int64, planned []plannedRow, result *ImportResult) error {
	var created, added, already int
	var creds []Credential

	err := im.store.WithTx(ctx, func(tx database.Tx) error {
		if _, err := tx.LockEvent(ctx, eventID); err != nil {
			return err
		}

		joined := make([]int64, 0, len(planned))
		for _, row := range planned {
			// Re-resolve under the lock; the validation pass ran in its own snapshot.
			current, err := resolveRow(ctx, tx, eventID, row.normalizedRow)
			if err != nil {
				return fmt.Errorf("row %d: %w", row.Row, err)
			}

			memberID := current.memberID
			switch current.action {
			case actionAlready:
				already++
				continue
			case actionCreate:
				member, err := im.createMember(ctx, tx, row.normalizedRow, &creds)
				if err != nil {
					return fmt.Errorf("row %d: %w", row.Row, err)
				}
				memberID = member.ID
				created++
			case actionAdd:
				added++
			}

			if err := tx.AddMembership(ctx, memberID, eventID); err != nil {
				return fmt.Errorf("row %d: %w", row.Row, err)
			}
			joined = append(joined, memberID)
		}

		_, err := attendance.BackfillMembers(ctx, tx, eventID, joined)
		return err
	})
	if err != nil {
		return err
	}

	result.NewMembersCreated = created
	result.ExistingMembersAdded = added
	result.AlreadyInEvent = already
	result.Credentials = creds
	return nil
}

func (im *Importer) createMember(ctx context.Context, tx database.Tx, row normalizedRow, creds *[]Credential) (*database.Member, error) {
	password, err := credential.GeneratePassword(im.passwordLength)
	if err != nil {
		return nil, err
	}
	hash, err := im.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	member := &database.Member{
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Email:        row.Email,
		PasswordHash: hash,
	}
	if err := tx.CreateMember(ctx, member); err != nil {
		return nil, err
	}
	*creds = append(*creds, Credential{Email: member.Email, Password: password})
	return member, nil
}
