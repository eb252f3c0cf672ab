package patients

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/BGomes2022/doctor-k-therapy-sub001/internal/ledger"
)

// ErrTokenNotFound reports an unknown booking token.
var ErrTokenNotFound = errors.New("patients: token not found")

var tokenHeader = []string{
	"token", "userId", "patientName", "patientEmail",
	"encryptedMedicalForm", "sessionPackage", "sessionsUsed",
	"createdAt", "expiresAt",
}

// Store persists token records in booking-tokens.csv.
type Store struct {
	file *ledger.File
}

// NewStore opens the token ledger at path.
func NewStore(path string) *Store {
	return &Store{file: ledger.NewFile(path, tokenHeader)}
}

func encodeToken(r TokenRecord) ([]string, error) {
	pkg, err := json.Marshal(r.SessionPackage)
	if err != nil {
		return nil, fmt.Errorf("patients: encode package: %w", err)
	}
	return []string{
		r.Token,
		r.UserID,
		r.PatientName,
		r.PatientEmail,
		r.EncryptedMedicalForm,
		string(pkg),
		strconv.Itoa(r.SessionsUsed),
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

func decodeToken(row []string) (TokenRecord, error) {
	if len(row) != len(tokenHeader) {
		return TokenRecord{}, fmt.Errorf("patients: row has %d fields, want %d", len(row), len(tokenHeader))
	}
	var pkg SessionPackage
	if row[5] != "" {
		if err := json.Unmarshal([]byte(row[5]), &pkg); err != nil {
			return TokenRecord{}, fmt.Errorf("patients: decode package: %w", err)
		}
	}
	used, err := strconv.Atoi(row[6])
	if err != nil {
		return TokenRecord{}, fmt.Errorf("patients: decode sessionsUsed: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339, row[7])
	if err != nil {
		return TokenRecord{}, fmt.Errorf("patients: decode createdAt: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339, row[8])
	if err != nil {
		return TokenRecord{}, fmt.Errorf("patients: decode expiresAt: %w", err)
	}
	return TokenRecord{
		Token:                row[0],
		UserID:               row[1],
		PatientName:          row[2],
		PatientEmail:         row[3],
		EncryptedMedicalForm: row[4],
		SessionPackage:       pkg,
		SessionsUsed:         used,
		CreatedAt:            createdAt,
		ExpiresAt:            expiresAt,
	}, nil
}

// Append adds a new token record.
func (s *Store) Append(r TokenRecord) error {
	row, err := encodeToken(r)
	if err != nil {
		return err
	}
	return s.file.Append(row)
}

// List returns every token record in file order.
func (s *Store) List() ([]TokenRecord, error) {
	rows, err := s.file.ReadAll()
	if err != nil {
		return nil, err
	}
	records := make([]TokenRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeToken(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get returns the record for a token.
func (s *Store) Get(token string) (TokenRecord, error) {
	records, err := s.List()
	if err != nil {
		return TokenRecord{}, err
	}
	for _, rec := range records {
		if rec.Token == token {
			return rec, nil
		}
	}
	return TokenRecord{}, ErrTokenNotFound
}

// Mutate rewrites the record for token via fn, under the ledger lock.
func (s *Store) Mutate(token string, fn func(rec TokenRecord) (TokenRecord, error)) (TokenRecord, error) {
	var out TokenRecord
	err := s.file.Update(func(rows [][]string) ([][]string, error) {
		found := false
		for i, row := range rows {
			rec, err := decodeToken(row)
			if err != nil {
				return nil, err
			}
			if rec.Token != token {
				continue
			}
			updated, err := fn(rec)
			if err != nil {
				return nil, err
			}
			encoded, err := encodeToken(updated)
			if err != nil {
				return nil, err
			}
			rows[i] = encoded
			out = updated
			found = true
			break
		}
		if !found {
			return nil, ErrTokenNotFound
		}
		return rows, nil
	})
	if err != nil {
		return TokenRecord{}, err
	}
	return out, nil
}

// Remove deletes the records for the given tokens, returning how many rows
// were dropped.
func (s *Store) Remove(tokens map[string]bool) (int, error) {
	removed := 0
	err := s.file.Update(func(rows [][]string) ([][]string, error) {
		kept := rows[:0]
		for _, row := range rows {
			rec, err := decodeToken(row)
			if err != nil {
				return nil, err
			}
			if tokens[rec.Token] {
				removed++
				continue
			}
			kept = append(kept, row)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
