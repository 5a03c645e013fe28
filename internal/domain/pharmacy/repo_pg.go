package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

var (
	_ queryable = (*pgxpool.Pool)(nil)
	_ queryable = (pgx.Tx)(nil)
)

// FieldCipher encrypts personal columns at rest.
type FieldCipher interface {
	EncryptField(value string) (string, error)
	DecryptField(value string) (string, error)
}

type plainCipher struct{}

func (plainCipher) EncryptField(v string) (string, error) { return v, nil }
func (plainCipher) DecryptField(v string) (string, error) { return v, nil }

func cipherOrPlain(c FieldCipher) FieldCipher {
	if c == nil {
		return plainCipher{}
	}
	return c
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =========== Prescription Store ===========

type prescriptionStorePG struct {
	db     queryable
	cipher FieldCipher
}

// NewPrescriptionStorePG stores raw_text through cipher; a nil cipher
// stores it as is.
func NewPrescriptionStorePG(pool *pgxpool.Pool, cipher FieldCipher) PrescriptionStore {
	return &prescriptionStorePG{db: pool, cipher: cipherOrPlain(cipher)}
}

const prescriptionCols = `id, patient, doctor, medicines, diagnosis, confidence_score,
	extractor, raw_text, created_at`

func (r *prescriptionStorePG) scan(row pgx.Row) (*Prescription, error) {
	var p Prescription
	if err := row.Scan(&p.ID, &p.Patient, &p.Doctor, &p.Medicines, &p.Diagnosis, &p.ConfidenceScore,
		&p.Extractor, &p.RawText, &p.CreatedAt); err != nil {
		return nil, err
	}
	raw, err := r.cipher.DecryptField(p.RawText)
	if err != nil {
		return nil, fmt.Errorf("decrypt raw_text of %s: %w", p.ID, err)
	}
	p.RawText = raw
	return &p, nil
}

func (r *prescriptionStorePG) Create(ctx context.Context, p *Prescription) error {
	raw, err := r.cipher.EncryptField(p.RawText)
	if err != nil {
		return fmt.Errorf("encrypt raw_text: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO prescription (id, patient, doctor, medicines, diagnosis, confidence_score,
			extractor, raw_text, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Patient, p.Doctor, p.Medicines, p.Diagnosis, p.ConfidenceScore,
		p.Extractor, raw, p.CreatedAt)
	return err
}

func (r *prescriptionStorePG) Get(ctx context.Context, id string) (*Prescription, error) {
	p, err := r.scan(r.db.QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *prescriptionStorePG) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM prescription WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *prescriptionStorePG) List(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM prescription`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+prescriptionCols+` FROM prescription ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Prescription{}
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *prescriptionStorePG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM prescription`).Scan(&n)
	return n, err
}

// =========== Order Store ===========

type orderStorePG struct {
	db     queryable
	cipher FieldCipher
}

// NewOrderStorePG stores the delivery address and contact number through
// cipher; a nil cipher stores them as is.
func NewOrderStorePG(pool *pgxpool.Pool, cipher FieldCipher) OrderStore {
	return &orderStorePG{db: pool, cipher: cipherOrPlain(cipher)}
}

const orderCols = `id, prescription_id, patient_info, medicines, delivery_address, contact_number,
	status, subtotal, delivery_charge, total_amount, estimated_delivery, created_at`

func (r *orderStorePG) scan(row pgx.Row) (*Order, error) {
	var o Order
	if err := row.Scan(&o.ID, &o.PrescriptionID, &o.PatientInfo, &o.Medicines, &o.DeliveryAddress, &o.ContactNumber,
		&o.Status, &o.Subtotal, &o.DeliveryCharge, &o.TotalAmount, &o.EstimatedDelivery, &o.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if o.DeliveryAddress, err = r.cipher.DecryptField(o.DeliveryAddress); err != nil {
		return nil, fmt.Errorf("decrypt delivery_address of %s: %w", o.ID, err)
	}
	if o.ContactNumber, err = r.cipher.DecryptField(o.ContactNumber); err != nil {
		return nil, fmt.Errorf("decrypt contact_number of %s: %w", o.ID, err)
	}
	return &o, nil
}

func (r *orderStorePG) Create(ctx context.Context, o *Order) error {
	address, err := r.cipher.EncryptField(o.DeliveryAddress)
	if err != nil {
		return fmt.Errorf("encrypt delivery_address: %w", err)
	}
	contact, err := r.cipher.EncryptField(o.ContactNumber)
	if err != nil {
		return fmt.Errorf("encrypt contact_number: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO medicine_order (id, prescription_id, patient_info, medicines, delivery_address,
			contact_number, status, subtotal, delivery_charge, total_amount, estimated_delivery, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, o.PrescriptionID, o.PatientInfo, o.Medicines, address,
		contact, o.Status, o.Subtotal, o.DeliveryCharge, o.TotalAmount, o.EstimatedDelivery, o.CreatedAt)
	return err
}

func (r *orderStorePG) Get(ctx context.Context, id string) (*Order, error) {
	o, err := r.scan(r.db.QueryRow(ctx, `SELECT `+orderCols+` FROM medicine_order WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (r *orderStorePG) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM medicine_order WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderStorePG) List(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM medicine_order`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+orderCols+` FROM medicine_order ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Order{}
	for rows.Next() {
		o, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *orderStorePG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM medicine_order`).Scan(&n)
	return n, err
}
