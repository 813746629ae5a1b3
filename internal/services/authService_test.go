package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medibook/internal/models"
)

const (
	alice       = "alice@example.com"
	alicePass   = "Str0ng!Pw"
	doctorEmail = "house@example.com"
	doctorPass  = "Vic0din!md"
)

func TestAliceRegistersAndLogsIn(t *testing.T) {
	env := newTestEnv(t, fixedCodes("123456"))
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, models.RegisterRequest{Name: "Alice", Email: alice, Password: alicePass, Role: "patient"}, clientInfo)
	require.NoError(t, err)
	assert.True(t, reg.EmailSent)
	assert.False(t, reg.Account.IsEmailVerified)

	verified, err := env.auth.VerifyOTP(ctx, models.VerifyOTPRequest{Email: alice, OTP: "123456", Role: "patient", Purpose: "registration"}, clientInfo)
	require.NoError(t, err)
	assert.True(t, verified.Account.IsEmailVerified)
	assert.NotNil(t, verified.Account.EmailVerifiedAt)
	assert.Nil(t, verified.Session, "registration does not log the user in")
	assert.Equal(t, []string{alice}, env.notifier.welcomes)

	_, err = env.auth.Login(ctx, models.Login{Email: alice, Password: alicePass, Role: "patient"}, clientInfo)
	require.NoError(t, err)

	env.clock.Advance(30 * time.Second)
	res, err := env.auth.VerifyOTP(ctx, models.VerifyOTPRequest{Email: alice, OTP: "123456", Role: "patient", Purpose: "login"}, clientInfo)
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.NotEmpty(t, res.Session.Token)
	assert.Nil(t, res.PreviousLogin)
	require.NotNil(t, res.Account.LastLogin)
	assert.Equal(t, env.clock.Now(), *res.Account.LastLogin)

	cookie := env.tokens.Cookie(res.Session.Token)
	assert.Equal(t, "token", cookie.Name)
	assert.Equal(t, res.Session.Token, cookie.Value)

	p, err := env.auth.Authenticate(ctx, res.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, p.AccountID)
	assert.Equal(t, models.RolePatient, p.Role)

	me, err := env.auth.Me(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, alice, me.Email)
}

func TestLoginBeforeVerificationFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, models.RegisterRequest{Name: "Alice", Email: alice, Password: alicePass, Role: "patient"}, clientInfo)
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, models.Login{Email: alice, Password: alicePass, Role: "patient"}, clientInfo)
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestRegisterDuplicateEmailAcrossRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, models.RolePatient, alice, alicePass)

	_, err := env.auth.Register(ctx, models.RegisterRequest{
		Name: "Alice", Email: alice, Password: alicePass, Role: "doctor", Specialization: "GP", LicenseNumber: "L-2",
	}, clientInfo)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegisterSucceedsWhenDeliveryFails(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.fail = true

	reg, err := env.auth.Register(context.Background(), models.RegisterRequest{Name: "Alice", Email: alice, Password: alicePass, Role: "patient"}, clientInfo)
	require.NoError(t, err)
	assert.False(t, reg.EmailSent)

	exists, err := env.credentials.EmailExists(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestVerifyRegistrationTwice(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, models.RolePatient, alice, alicePass)

	_, err := env.auth.VerifyOTP(context.Background(), models.VerifyOTPRequest{Email: alice, OTP: "123456", Role: "patient", Purpose: "registration"}, clientInfo)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyRejectsPasswordResetPurpose(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.auth.VerifyOTP(context.Background(), models.VerifyOTPRequest{Email: alice, OTP: "123456", Role: "patient", Purpose: "password-reset"}, clientInfo)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoginInvalidCredentialsAreGeneric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, models.RolePatient, alice, alicePass)

	_, unknown := env.auth.Login(ctx, models.Login{Email: "nobody@example.com", Password: alicePass, Role: "patient"}, clientInfo)
	_, wrong := env.auth.Login(ctx, models.Login{Email: alice, Password: "Wr0ng!pass", Role: "patient"}, clientInfo)
	_, otherRole := env.auth.Login(ctx, models.Login{Email: alice, Password: alicePass, Role: "doctor"}, clientInfo)

	assert.ErrorIs(t, unknown, ErrInvalidCredentials)
	assert.ErrorIs(t, wrong, ErrInvalidCredentials)
	assert.ErrorIs(t, otherRole, ErrInvalidCredentials)
	assert.Equal(t, unknown.Error(), wrong.Error())
}

func TestLoginIsRateLimited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, models.RolePatient, alice, alicePass)

	_, err := env.auth.Login(ctx, models.Login{Email: alice, Password: alicePass, Role: "patient"}, clientInfo)
	require.NoError(t, err)

	env.clock.Advance(20 * time.Second)
	_, err = env.auth.Login(ctx, models.Login{Email: alice, Password: alicePass, Role: "patient"}, clientInfo)
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 40, rateErr.WaitSeconds)
}

func TestSecondLoginRevokesFirstDevice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, models.RolePatient, alice, alicePass)

	first := env.login(t, models.RolePatient, alice, alicePass)
	env.clock.Advance(2 * time.Minute)
	second := env.login(t, models.RolePatient, alice, alicePass)

	assert.True(t, second.Session.HadPriorDevice)
	assert.EqualValues(t, 1, second.Session.RevokedCount)
	require.NotNil(t, second.PreviousLogin)
	assert.Equal(t, first.Account.LastLogin.Unix(), second.PreviousLogin.Unix())

	_, err := env.auth.Authenticate(ctx, first.Session.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = env.sessions.FindByToken(ctx, first.Session.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)

	p, err := env.auth.Authenticate(ctx, second.Session.Token)
	require.NoError(t, err)
	views, err := env.auth.Sessions(ctx, p)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Current)
}

func TestConcurrentSessionIssueLeavesOneActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.registerVerified(t, models.RolePatient, alice, alicePass)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.tokens.Issue(ctx, account, clientInfo)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	active, err := env.sessions.ListActive(ctx, account.ID, "Patient")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestSuspendedDoctorCannotLogIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doctor := env.registerVerified(t, models.RoleDoctor, doctorEmail, doctorPass)
	admin := env.createAdmin(t, "cuddy@example.com", "Adm1n!pass")
	session := env.login(t, models.RoleDoctor, doctorEmail, doctorPass)

	adminPrincipal := &Principal{AccountID: admin.ID, Role: models.RoleAdmin, Email: admin.Email}
	_, err := env.admin.SuspendAccount(ctx, adminPrincipal, models.RoleDoctor, doctor.ID, "unlicensed practice")
	require.NoError(t, err)

	_, err = env.auth.Authenticate(ctx, session.Session.Token)
	assert.Error(t, err, "suspension revokes existing sessions")

	env.clock.Advance(2 * time.Minute)
	_, err = env.auth.Login(ctx, models.Login{Email: doctorEmail, Password: doctorPass, Role: "doctor"}, clientInfo)
	var suspended *SuspendedError
	require.ErrorAs(t, err, &suspended)
	assert.ErrorIs(t, err, ErrAccountSuspended)
	assert.Equal(t, "unlicensed practice", suspended.Reason)
	assert.Equal(t, "cuddy@example.com", suspended.AdminContact)
	assert.Equal(t, []string{doctorEmail}, env.notifier.suspended)

	require.NoError(t, env.accounts.Delete(ctx, models.RoleAdmin, admin.ID))
	_, err = env.auth.Login(ctx, models.Login{Email: doctorEmail, Password: doctorPass, Role: "doctor"}, clientInfo)
	require.ErrorAs(t, err, &suspended)
	assert.Equal(t, "support@medibook.test", suspended.AdminContact, "a deleted admin falls back to support")
}

func TestReactivatedDoctorCanLogIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doctor := env.registerVerified(t, models.RoleDoctor, doctorEmail, doctorPass)
	admin := env.createAdmin(t, "cuddy@example.com", "Adm1n!pass")
	adminPrincipal := &Principal{AccountID: admin.ID, Role: models.RoleAdmin, Email: admin.Email}

	_, err := env.admin.SuspendAccount(ctx, adminPrincipal, models.RoleDoctor, doctor.ID, "audit")
	require.NoError(t, err)
	_, err = env.admin.ReactivateAccount(ctx, adminPrincipal, models.RoleDoctor, doctor.ID)
	require.NoError(t, err)

	env.login(t, models.RoleDoctor, doctorEmail, doctorPass)

	updated, err := env.admin.SetVerificationStatus(ctx, adminPrincipal, models.RoleDoctor, doctor.ID, models.VerificationApproved, "documents checked")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, updated.VerificationStatus)
	assert.Equal(t, admin.ID, updated.VerifiedBy)

	_, err = env.admin.SuspendAccount(ctx, adminPrincipal, models.RoleAdmin, admin.ID, "nope")
	assert.ErrorIs(t, err, ErrValidation)

	env.audit.Close()
	actions := env.auditRepo.(auditSnapshot).AdminActions()
	require.Len(t, actions, 4)
	assert.Equal(t, models.ActionSuspendAccount, actions[0].Action)
	assert.Equal(t, models.ActionReactivateAccount, actions[1].Action)
	assert.Equal(t, models.ActionSetVerification, actions[2].Action)
	assert.False(t, actions[3].Success)
}

func TestAdminLoginSkipsOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createAdmin(t, "cuddy@example.com", "Adm1n!pass")

	_, err := env.auth.AdminLogin(ctx, models.AdminLogin{Email: "cuddy@example.com", Password: "wrong"}, clientInfo)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := env.auth.AdminLogin(ctx, models.AdminLogin{Email: "cuddy@example.com", Password: "Adm1n!pass"}, clientInfo)
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Empty(t, env.notifier.otps)

	p, err := env.auth.Authenticate(ctx, res.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, p.Role)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, models.RolePatient, alice, alicePass)
	res := env.login(t, models.RolePatient, alice, alicePass)

	p, err := env.auth.Authenticate(ctx, res.Session.Token)
	require.NoError(t, err)
	require.NoError(t, env.auth.Logout(ctx, p, clientInfo))

	_, err = env.auth.Authenticate(ctx, res.Session.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)

	account, err := env.credentials.FindByID(ctx, models.RolePatient, p.AccountID)
	require.NoError(t, err)
	assert.NotNil(t, account.LastLogout)

	assert.NoError(t, env.auth.Logout(ctx, p, clientInfo), "logging out twice is harmless")
}

func TestForgotPasswordTwiceReplacesPendingCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, models.RolePatient, alice, alicePass)
	req := models.ForgotPasswordRequest{Email: alice, Role: "patient"}

	require.NoError(t, env.auth.ForgotPassword(ctx, req, clientInfo))
	first := env.notifier.lastCode(t, alice, models.OTPPurposePasswordReset)
	require.NoError(t, env.auth.ForgotPassword(ctx, req, clientInfo), "a second request while the first code is pending succeeds")
	second := env.notifier.lastCode(t, alice, models.OTPPurposePasswordReset)

	_, err := env.auth.ResendOTP(ctx, models.ResendOTPRequest{Email: alice, Role: "patient", Purpose: "password-reset"}, clientInfo)
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr, "resending stays subject to the cool-down")
	assert.Greater(t, rateErr.WaitSeconds, 0)

	if first != second {
		err = env.auth.ResetPassword(ctx, models.ResetPasswordRequest{Email: alice, OTP: first, Password: "N3w!Passw0rd", ConfirmPassword: "N3w!Passw0rd", Role: "patient"}, clientInfo)
		assert.Error(t, err, "the replaced code no longer works")
	}
	require.NoError(t, env.auth.ResetPassword(ctx, models.ResetPasswordRequest{Email: alice, OTP: second, Password: "N3w!Passw0rd", ConfirmPassword: "N3w!Passw0rd", Role: "patient"}, clientInfo))
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)
	err := env.auth.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "nobody@example.com", Role: "patient"}, clientInfo)
	assert.NoError(t, err)
	assert.Empty(t, env.notifier.otps)
}

func TestPasswordResetIsOncePerLifetime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, models.RolePatient, alice, alicePass)
	old := env.login(t, models.RolePatient, alice, alicePass)

	require.NoError(t, env.auth.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: alice, Role: "patient"}, clientInfo))
	code := env.notifier.lastCode(t, alice, models.OTPPurposePasswordReset)

	err := env.auth.ResetPassword(ctx, models.ResetPasswordRequest{Email: alice, OTP: wrongCode(code), Password: "N3w!Passw0rd", ConfirmPassword: "N3w!Passw0rd", Role: "patient"}, clientInfo)
	assert.ErrorIs(t, err, ErrOTPInvalid)

	require.NoError(t, env.auth.ResetPassword(ctx, models.ResetPasswordRequest{Email: alice, OTP: code, Password: "N3w!Passw0rd", ConfirmPassword: "N3w!Passw0rd", Role: "patient"}, clientInfo))

	account, err := env.credentials.FindByEmail(ctx, models.RolePatient, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, account.PasswordResetCount)
	assert.NotNil(t, account.PasswordResetUsedAt)
	assert.NotNil(t, account.PasswordChangedAt)
	assert.True(t, env.credentials.VerifyPassword(account, "N3w!Passw0rd"))
	assert.False(t, env.credentials.VerifyPassword(account, alicePass))
	assert.Equal(t, []string{alice}, env.notifier.changed)

	_, err = env.auth.Authenticate(ctx, old.Session.Token)
	assert.Error(t, err, "a reset signs out every device")

	_, err = env.otpRepo.FindLatest(ctx, alice, models.OTPPurposePasswordReset)
	assert.Error(t, err, "the used code is deleted")

	for _, wait := range []time.Duration{time.Minute, 24 * time.Hour, 365 * 24 * time.Hour} {
		env.clock.Advance(wait)
		err := env.auth.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: alice, Role: "patient"}, clientInfo)
		assert.ErrorIs(t, err, ErrResetLimitReached)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, models.RolePatient, alice, alicePass)
	res := env.login(t, models.RolePatient, alice, alicePass)
	p, err := env.auth.Authenticate(ctx, res.Session.Token)
	require.NoError(t, err)

	err = env.auth.ChangePassword(ctx, p, models.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "N3w!Passw0rd", ConfirmPassword: "N3w!Passw0rd"}, clientInfo)
	assert.ErrorIs(t, err, ErrIncorrectPassword)

	err = env.auth.ChangePassword(ctx, p, models.ChangePasswordRequest{CurrentPassword: alicePass, NewPassword: alicePass, ConfirmPassword: alicePass}, clientInfo)
	assert.ErrorIs(t, err, ErrPasswordReuse)

	require.NoError(t, env.auth.ChangePassword(ctx, p, models.ChangePasswordRequest{CurrentPassword: alicePass, NewPassword: "N3w!Passw0rd", ConfirmPassword: "N3w!Passw0rd"}, clientInfo))

	_, err = env.auth.Authenticate(ctx, res.Session.Token)
	assert.NoError(t, err, "the current session survives a password change")

	account, err := env.credentials.FindByID(ctx, models.RolePatient, p.AccountID)
	require.NoError(t, err)
	assert.Equal(t, 0, account.PasswordResetCount)
	assert.True(t, env.credentials.VerifyPassword(account, "N3w!Passw0rd"))
}

func TestUpdateProfileAndDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, models.RolePatient, alice, alicePass)
	res := env.login(t, models.RolePatient, alice, alicePass)
	p, err := env.auth.Authenticate(ctx, res.Session.Token)
	require.NoError(t, err)

	phone := "+15551234567"
	updated, err := env.auth.UpdateProfile(ctx, p, models.ProfileUpdate{Phone: &phone}, clientInfo)
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)

	assert.ErrorIs(t, env.auth.DeleteAccount(ctx, p, "wrong", clientInfo), ErrIncorrectPassword)
	require.NoError(t, env.auth.DeleteAccount(ctx, p, alicePass, clientInfo))

	_, err = env.auth.Authenticate(ctx, res.Session.Token)
	assert.Error(t, err)
	exists, err := env.credentials.EmailExists(ctx, alice)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRevokeSessionThroughAuth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, models.RolePatient, alice, alicePass)
	res := env.login(t, models.RolePatient, alice, alicePass)
	p, err := env.auth.Authenticate(ctx, res.Session.Token)
	require.NoError(t, err)

	n, err := env.auth.RevokeOtherSessions(ctx, p, clientInfo)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	require.NoError(t, env.auth.RevokeSession(ctx, p, p.SessionID, clientInfo))
	_, err = env.auth.Authenticate(ctx, res.Session.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestAuthEventsAreAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, models.RolePatient, alice, alicePass)
	_, _ = env.auth.Login(ctx, models.Login{Email: alice, Password: "Wr0ng!pass", Role: "patient"}, clientInfo)
	env.audit.Close()

	logs := env.auditRepo.(auditSnapshot).AuthLogs()
	require.Len(t, logs, 3)
	assert.Equal(t, models.ActionRegister, logs[0].Action)
	assert.Equal(t, models.ActionVerifyEmail, logs[1].Action)
	assert.Equal(t, models.ActionLoginAttempt, logs[2].Action)
	assert.False(t, logs[2].Success)
	assert.Equal(t, "wrong password", logs[2].Reason)
	assert.Equal(t, "Patient", logs[2].UserType)
	assert.Equal(t, clientInfo.IPAddress, logs[2].IPAddress)
}

func TestRejectedTrustChangesAreAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, models.RolePatient, alice, alicePass)
	res := env.login(t, models.RolePatient, alice, alicePass)
	p, err := env.auth.Authenticate(ctx, res.Session.Token)
	require.NoError(t, err)

	_, err = env.auth.VerifyOTP(ctx, models.VerifyOTPRequest{Email: alice, OTP: "123456", Role: "patient", Purpose: "registration"}, clientInfo)
	require.ErrorIs(t, err, ErrAlreadyVerified)
	err = env.auth.ChangePassword(ctx, p, models.ChangePasswordRequest{CurrentPassword: alicePass, NewPassword: alicePass, ConfirmPassword: alicePass}, clientInfo)
	require.ErrorIs(t, err, ErrPasswordReuse)
	env.audit.Close()

	logs := env.auditRepo.(auditSnapshot).AuthLogs()
	require.GreaterOrEqual(t, len(logs), 2)
	verify, change := logs[len(logs)-2], logs[len(logs)-1]
	assert.Equal(t, models.ActionVerifyEmail, verify.Action)
	assert.False(t, verify.Success)
	assert.Equal(t, ErrAlreadyVerified.Error(), verify.Reason)
	assert.Equal(t, models.ActionChangePassword, change.Action)
	assert.False(t, change.Success)
	assert.Equal(t, ErrPasswordReuse.Error(), change.Reason)
}
