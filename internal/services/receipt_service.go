package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"

	"github.com/skip2/go-qrcode"
)

// ReceiptPayload is the proof of a transfer: the hashed fields of the entry
// and the block that links it into the chain. Anyone holding it can
// recompute current_hash.
type ReceiptPayload struct {
	TransactionNo      string `json:"transaction_no"`
	ProjectNo          string `json:"project_no"`
	FromAccountNo      string `json:"from_account_no"`
	ToAccountNo        string `json:"to_account_no"`
	Amount             string `json:"amount"`
	Timestamp          string `json:"timestamp"`
	PreviousHash       string `json:"previous_hash"`
	CurrentHash        string `json:"current_hash"`
	VerificationStatus string `json:"verification_status"`
}

// Receipt carries the payload, its base64url JSON form (the QR content) and
// the QR code as a base64 PNG.
type Receipt struct {
	Payload ReceiptPayload `json:"payload"`
	Code    string         `json:"receipt"`
	QRImage string         `json:"qrImage"`
}

type ReceiptService struct {
	ledger *LedgerService
	size   int
}

func NewReceiptService(ledger *LedgerService) *ReceiptService {
	return &ReceiptService{ledger: ledger, size: 256}
}

// GenerateReceipt renders the proof of transactionNo as a PNG QR code.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, transactionNo string) (Receipt, error) {
	entry, err := s.ledger.GetTransaction(ctx, transactionNo)
	if err != nil {
		return Receipt{}, err
	}

	block, err := s.ledger.GetBlock(ctx, transactionNo)
	if err != nil {
		return Receipt{}, err
	}

	payload := ReceiptPayload{
		TransactionNo:      entry.TransactionNo,
		ProjectNo:          entry.ProjectNo,
		FromAccountNo:      entry.FromAccountNo,
		ToAccountNo:        entry.ToAccountNo,
		Amount:             entry.AmountText(),
		Timestamp:          entry.Timestamp,
		PreviousHash:       block.PreviousHash,
		CurrentHash:        block.CurrentHash,
		VerificationStatus: entry.VerificationStatus,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, err
	}

	code := base64.URLEncoding.EncodeToString(jsonData)

	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return Receipt{}, fmt.Errorf("encoding receipt: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(s.size)); err != nil {
		return Receipt{}, fmt.Errorf("encoding receipt image: %w", err)
	}

	return Receipt{
		Payload: payload,
		Code:    code,
		QRImage: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// DecodeReceipt parses a receipt code produced by GenerateReceipt.
func DecodeReceipt(code string) (ReceiptPayload, error) {
	data, err := base64.URLEncoding.DecodeString(code)
	if err != nil {
		return ReceiptPayload{}, fmt.Errorf("invalid receipt code: %w", err)
	}

	var payload ReceiptPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return ReceiptPayload{}, fmt.Errorf("invalid receipt code: %w", err)
	}
	return payload, nil
}
