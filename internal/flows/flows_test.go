package flows

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/educatebharat/otpauth/internal/stores"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var (
	errNotReady        = errors.New("not ready")
	errValidation      = errors.New("validation")
	errAlreadyExists   = errors.New("already exists")
	errNotFound        = errors.New("not found")
	errNoChallenge     = errors.New("no challenge")
	errInvalidCode     = errors.New("invalid code")
	errInvalidCreds    = errors.New("invalid credentials")
	errDeliveryFailed  = errors.New("delivery failed")
	errUnauthenticated = errors.New("unauthenticated")
	errInternal        = errors.New("internal")
)

func testErrors() Errors {
	return Errors{
		EngineNotReady:     errNotReady,
		AlreadyExists:      errAlreadyExists,
		NotFound:           errNotFound,
		NoChallengeIssued:  errNoChallenge,
		InvalidCode:        errInvalidCode,
		InvalidCredentials: errInvalidCreds,
		DeliveryFailed:     errDeliveryFailed,
		Unauthenticated:    errUnauthenticated,
		Internal:           errInternal,
		Invalid: func(reason string) error {
			return errors.Join(errValidation, errors.New(reason))
		},
	}
}

type fakeAccounts struct {
	mu      sync.Mutex
	byEmail map[string]Account
	updates int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byEmail: map[string]Account{}}
}

func (f *fakeAccounts) get(_ context.Context, email string) (Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byEmail[email]
	if !ok {
		return Account{}, errNotFound
	}
	return a, nil
}

func (f *fakeAccounts) getByID(_ context.Context, id string) (Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byEmail {
		if a.ID == id {
			return a, nil
		}
	}
	return Account{}, errNotFound
}

func (f *fakeAccounts) create(_ context.Context, a Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[a.Email]; ok {
		return errAlreadyExists
	}
	f.byEmail[a.Email] = a
	return nil
}

func (f *fakeAccounts) updateHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, a := range f.byEmail {
		if a.ID == id {
			a.PasswordHash = hash
			f.byEmail[email] = a
			f.updates++
			return nil
		}
	}
	return errNotFound
}

// Hashes in these tests are the plaintext behind a fixed prefix.
func fakeHash(s string) (string, error) { return "h:" + s, nil }

func fakeVerify(s, hash string) (bool, error) {
	if !strings.HasPrefix(hash, "h:") {
		return false, errors.New("bad hash")
	}
	return hash == "h:"+s, nil
}

func newTestLedger(t *testing.T) *stores.VerificationLedger {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return stores.NewVerificationLedger(rdb, "otp")
}

type sentMail struct {
	email string
	code  string
}

type harness struct {
	ledger   *stores.VerificationLedger
	accounts *fakeAccounts
	sent     []sentMail
	sendErr  error
	metrics  map[int]int
	audits   []string
	records  []AuditRecord
}

func newHarness(t *testing.T) *harness {
	return &harness{
		ledger:   newTestLedger(t),
		accounts: newFakeAccounts(),
		metrics:  map[int]int{},
	}
}

func (h *harness) metricInc(id int) { h.metrics[id]++ }

func (h *harness) emit(_ context.Context, rec AuditRecord) {
	state := "fail"
	if rec.Success {
		state = "ok"
	}
	h.audits = append(h.audits, rec.Event+":"+state)
	h.records = append(h.records, rec)
}

func (h *harness) issueDeps() IssueOTPDeps {
	return IssueOTPDeps{
		Digits:       6,
		TTL:          10 * time.Minute,
		HashCode:     fakeHash,
		PutChallenge: h.ledger.Put,
		SendCode: func(_ context.Context, email, code string, _ time.Duration) error {
			if h.sendErr != nil {
				return h.sendErr
			}
			h.sent = append(h.sent, sentMail{email: email, code: code})
			return nil
		},
		MetricInc: h.metricInc,
		EmitAudit: h.emit,
		Metrics:   IssueOTPMetrics{Issued: 1, DeliveryFailed: 2, Failure: 3},
		Events:    IssueOTPEvents{Issue: "otp_issue"},
		Errors:    testErrors(),
	}
}

func (h *harness) challengeDeps() ChallengeDeps {
	return ChallengeDeps{
		Digits:           6,
		GetChallenge:     h.ledger.Get,
		ConsumeChallenge: h.ledger.Consume,
		VerifyCode:       fakeVerify,
	}
}

func (h *harness) registerDeps() RegisterDeps {
	n := 0
	return RegisterDeps{
		Challenge:         h.challengeDeps(),
		GetAccountByEmail: h.accounts.get,
		HashPassword:      fakeHash,
		NewID: func() string {
			n++
			return "id-" + strconv.Itoa(n)
		},
		CreateAccount: h.accounts.create,
		MetricInc:     h.metricInc,
		EmitAudit:     h.emit,
		Metrics:       RegisterMetrics{Success: 10, Failure: 11, Duplicate: 12, InvalidCode: 13},
		Events:        RegisterEvents{Register: "register"},
		Errors:        testErrors(),
	}
}

func (h *harness) resetDeps() PasswordResetDeps {
	return PasswordResetDeps{
		Challenge:          h.challengeDeps(),
		GetAccountByEmail:  h.accounts.get,
		HashPassword:       fakeHash,
		UpdatePasswordHash: h.accounts.updateHash,
		MetricInc:          h.metricInc,
		EmitAudit:          h.emit,
		Metrics:            PasswordResetMetrics{Success: 20, Failure: 21, InvalidCode: 22},
		Events:             PasswordResetEvents{Reset: "password_reset"},
		Errors:             testErrors(),
	}
}

func (h *harness) issue(t *testing.T, email string) string {
	t.Helper()
	if err := RunIssueOTP(context.Background(), email, h.issueDeps()); err != nil {
		t.Fatalf("issue otp: %v", err)
	}
	return h.sent[len(h.sent)-1].code
}

func wrongCode(code string) string {
	if code == "123456" {
		return "654321"
	}
	return "123456"
}
