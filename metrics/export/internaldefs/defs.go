package internaldefs

import (
	"github.com/educatebharat/otpauth"
)

// Counter names one engine counter.
type Counter struct {
	ID   otpauth.MetricID
	Name string
	Help string
}

// Counters lists every exported counter in exposition order.
var Counters = []Counter{
	{otpauth.MetricOTPIssued, "otpauth_otp_issued_total", "Verification codes stored and mailed."},
	{otpauth.MetricOTPDeliveryFailed, "otpauth_otp_delivery_failed_total", "Verification codes stored but not delivered."},
	{otpauth.MetricOTPIssueFailure, "otpauth_otp_issue_failure_total", "Code issues rejected before delivery."},
	{otpauth.MetricRegisterSuccess, "otpauth_register_success_total", "Identities registered."},
	{otpauth.MetricRegisterFailure, "otpauth_register_failure_total", "Rejected registrations."},
	{otpauth.MetricRegisterDuplicate, "otpauth_register_duplicate_total", "Registrations for an email that already has an identity."},
	{otpauth.MetricPasswordResetSuccess, "otpauth_password_reset_success_total", "Passwords reset with a verification code."},
	{otpauth.MetricPasswordResetFailure, "otpauth_password_reset_failure_total", "Rejected password resets."},
	{otpauth.MetricInvalidCode, "otpauth_invalid_code_total", "Presented codes that did not match the live challenge."},
	{otpauth.MetricLoginSuccess, "otpauth_login_success_total", "Successful logins."},
	{otpauth.MetricLoginFailure, "otpauth_login_failure_total", "Failed logins."},
	{otpauth.MetricPasswordHashUpgraded, "otpauth_password_hash_upgraded_total", "Stored hashes re-hashed at login."},
	{otpauth.MetricAuthenticateFailure, "otpauth_authenticate_failure_total", "Rejected access tokens."},
	{otpauth.MetricRefreshSuccess, "otpauth_refresh_success_total", "Session pairs minted from a refresh token."},
	{otpauth.MetricRefreshFailure, "otpauth_refresh_failure_total", "Rejected refresh tokens."},
	{otpauth.MetricLogout, "otpauth_logout_total", "Logouts."},
	{otpauth.MetricAccountDeletionRequest, "otpauth_account_deletion_request_total", "Account deletion requests mailed."},
	{otpauth.MetricAccountDeletionFailure, "otpauth_account_deletion_failure_total", "Account deletion requests that failed."},
}

// AuditDropped is the name of the dispatcher drop counter.
const AuditDropped = "otpauth_audit_dropped_total"

// AuditDroppedHelp describes AuditDropped.
const AuditDroppedHelp = "Audit events dropped because the dispatcher queue was full."

// LatencyHistogram describes the authenticate latency histogram.
var LatencyHistogram = struct {
	ID   otpauth.MetricID
	Name string
	Help string
}{
	ID:   otpauth.MetricAuthenticateLatency,
	Name: "otpauth_authenticate_latency_seconds",
	Help: "Access token verification latency.",
}

// Bounds are the upper bucket bounds in seconds, matching the engine's
// microsecond buckets.
var Bounds = [8]string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"+Inf",
}

// BoundSuffixes are Bounds rendered for use inside instrument names.
var BoundSuffixes = [8]string{
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_005",
	"inf",
}

// Cumulative converts per-bucket counts into cumulative counts. Missing
// buckets count as zero.
func Cumulative(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
