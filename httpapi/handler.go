// Package httpapi exposes the identity engine over HTTP. Handlers do request
// binding and delegate to the engine; every business error flows out to the
// central ErrorHandler untouched.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/championsworld/identity"
	"github.com/championsworld/identity/middleware"
)

// Handler binds the identity engine to echo routes.
type Handler struct {
	engine *identity.Engine
	log    *zap.Logger
}

func NewHandler(engine *identity.Engine, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{engine: engine, log: log}
}

// Policy is the static endpoint classification enforced by the gate. Every
// route registered in Register must appear here; anything else is denied.
func (h *Handler) Policy() *middleware.Policy {
	return middleware.NewPolicy().
		Public("POST", "/auth/login").
		Public("POST", "/auth/login/otp/send").
		Public("POST", "/auth/login/otp/verify").
		Public("POST", "/auth/login/email-otp/send").
		Public("POST", "/auth/login/email-otp/verify").
		Public("POST", "/auth/register/otp/send").
		Public("POST", "/auth/register/otp/verify").
		Public("POST", "/auth/register/otp/complete").
		Public("POST", "/auth/register/email-otp/send").
		Public("POST", "/auth/register/email-otp/verify").
		Public("POST", "/auth/register/email-otp/complete").
		Public("POST", "/auth/google").
		Public("POST", "/auth/forgot-password").
		Public("POST", "/auth/reset-password").
		Public("GET", "/auth/validate-token").
		Require(identity.RoleCustomer, "GET", "/auth/me").
		Require(identity.RoleCustomer, "*", "/auth/addresses/**").
		Require(identity.RoleSuperAdmin, "POST", "/auth/admin/register").
		Require(identity.RoleSuperAdmin, "PUT", "/auth/admin/status/**").
		Require(identity.RoleSuperAdmin, "GET", "/auth/show-admins").
		Require(identity.RoleSuperAdmin, "DELETE", "/auth/admin/**")
}

// Register wires every route onto the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/auth/login", h.login)
	e.POST("/auth/login/otp/send", h.sendPhoneLoginOTP)
	e.POST("/auth/login/otp/verify", h.verifyPhoneLoginOTP)
	e.POST("/auth/login/email-otp/send", h.sendEmailLoginOTP)
	e.POST("/auth/login/email-otp/verify", h.verifyEmailLoginOTP)
	e.POST("/auth/register/otp/send", h.startPhoneRegistration)
	e.POST("/auth/register/otp/verify", h.verifyPhoneRegistration)
	e.POST("/auth/register/otp/complete", h.completePhoneRegistration)
	e.POST("/auth/register/email-otp/send", h.startEmailRegistration)
	e.POST("/auth/register/email-otp/verify", h.verifyEmailRegistration)
	e.POST("/auth/register/email-otp/complete", h.completeEmailRegistration)
	e.POST("/auth/google", h.googleLogin)
	e.POST("/auth/forgot-password", h.forgotPassword)
	e.POST("/auth/reset-password", h.resetPassword)
	e.GET("/auth/validate-token", h.validateToken)
	e.GET("/auth/me", h.me)
	e.POST("/auth/addresses", h.addAddress)
	e.GET("/auth/addresses", h.listAddresses)
	e.PUT("/auth/addresses/:id", h.updateAddress)
	e.DELETE("/auth/addresses/:id", h.deleteAddress)
	e.POST("/auth/admin/register", h.registerAdmin)
	e.PUT("/auth/admin/status/:id", h.setAdminStatus)
	e.GET("/auth/show-admins", h.showAdmins)
	e.DELETE("/auth/admin/:id", h.deleteAdmin)
}

// ---- request shapes ----

type emailPassword struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type mobileRequest struct {
	Mobile string `json:"mobile"`
}

type mobileOTP struct {
	Mobile string `json:"mobile"`
	OTP    string `json:"otp"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type emailOTP struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resetRequest struct {
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func bindRequired(c echo.Context, v any, check func() bool) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if !check() {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing required fields")
	}
	return nil
}

// ---- login ----

func (h *Handler) login(c echo.Context) error {
	var req emailPassword
	if err := bindRequired(c, &req, func() bool { return req.Email != "" && req.Password != "" }); err != nil {
		return err
	}
	res, err := h.engine.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) sendPhoneLoginOTP(c echo.Context) error {
	var req mobileRequest
	if err := bindRequired(c, &req, func() bool { return req.Mobile != "" }); err != nil {
		return err
	}
	if err := h.engine.SendPhoneLoginOTP(c.Request().Context(), req.Mobile); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "OTP sent successfully"})
}

func (h *Handler) verifyPhoneLoginOTP(c echo.Context) error {
	var req mobileOTP
	if err := bindRequired(c, &req, func() bool { return req.Mobile != "" && req.OTP != "" }); err != nil {
		return err
	}
	res, err := h.engine.VerifyPhoneLoginOTP(c.Request().Context(), req.Mobile, req.OTP)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) sendEmailLoginOTP(c echo.Context) error {
	var req emailRequest
	if err := bindRequired(c, &req, func() bool { return req.Email != "" }); err != nil {
		return err
	}
	if err := h.engine.SendEmailLoginOTP(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "OTP sent successfully"})
}

func (h *Handler) verifyEmailLoginOTP(c echo.Context) error {
	var req emailOTP
	if err := bindRequired(c, &req, func() bool { return req.Email != "" && req.OTP != "" }); err != nil {
		return err
	}
	res, err := h.engine.VerifyEmailLoginOTP(c.Request().Context(), req.Email, req.OTP)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// ---- registration ----

func (h *Handler) startPhoneRegistration(c echo.Context) error {
	var req mobileRequest
	if err := bindRequired(c, &req, func() bool { return req.Mobile != "" }); err != nil {
		return err
	}
	if err := h.engine.StartPhoneRegistration(c.Request().Context(), req.Mobile); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "OTP sent successfully"})
}

func (h *Handler) verifyPhoneRegistration(c echo.Context) error {
	var req mobileOTP
	if err := bindRequired(c, &req, func() bool { return req.Mobile != "" && req.OTP != "" }); err != nil {
		return err
	}
	if err := h.engine.VerifyPhoneRegistrationOTP(c.Request().Context(), req.Mobile, req.OTP); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "OTP verified"})
}

func (h *Handler) completePhoneRegistration(c echo.Context) error {
	var req mobileRequest
	if err := bindRequired(c, &req, func() bool { return req.Mobile != "" }); err != nil {
		return err
	}
	res, err := h.engine.CompletePhoneRegistration(c.Request().Context(), req.Mobile)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) startEmailRegistration(c echo.Context) error {
	var req emailRequest
	if err := bindRequired(c, &req, func() bool { return req.Email != "" }); err != nil {
		return err
	}
	if err := h.engine.StartEmailRegistration(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "OTP sent successfully"})
}

func (h *Handler) verifyEmailRegistration(c echo.Context) error {
	var req emailOTP
	if err := bindRequired(c, &req, func() bool { return req.Email != "" && req.OTP != "" }); err != nil {
		return err
	}
	if err := h.engine.VerifyEmailRegistrationOTP(c.Request().Context(), req.Email, req.OTP); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "OTP verified"})
}

func (h *Handler) completeEmailRegistration(c echo.Context) error {
	var req emailRequest
	if err := bindRequired(c, &req, func() bool { return req.Email != "" }); err != nil {
		return err
	}
	res, err := h.engine.CompleteEmailRegistration(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// ---- google ----

func (h *Handler) googleLogin(c echo.Context) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := bindRequired(c, &req, func() bool { return req.Code != "" }); err != nil {
		return err
	}
	res, err := h.engine.LoginWithGoogle(c.Request().Context(), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// ---- password reset ----

func (h *Handler) forgotPassword(c echo.Context) error {
	var req emailRequest
	if err := bindRequired(c, &req, func() bool { return req.Email != "" }); err != nil {
		return err
	}
	if err := h.engine.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset OTP sent to email"})
}

func (h *Handler) resetPassword(c echo.Context) error {
	var req resetRequest
	if err := bindRequired(c, &req, func() bool {
		return req.Email != "" && req.OTP != "" && req.NewPassword != ""
	}); err != nil {
		return err
	}
	err := h.engine.CompletePasswordReset(c.Request().Context(),
		req.Email, req.OTP, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successful"})
}

// ---- token / identity ----

// validateToken answers for credentials the gate already accepted; invalid
// ones never reach this handler.
func (h *Handler) validateToken(c echo.Context) error {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"valid":   false,
			"message": "Missing Authorization header",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"valid":   true,
		"userId":  ident.UserID,
		"role":    ident.Role,
		"message": "Token is valid",
	})
}

func (h *Handler) me(c echo.Context) error {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return c.JSON(http.StatusOK, ident)
}

// ---- addresses ----

func callerID(c echo.Context) (int64, error) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return ident.UserID, nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	}
	return id, nil
}

func (h *Handler) addAddress(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var addr identity.AddressRecord
	if err := c.Bind(&addr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	created, err := h.engine.AddAddress(c.Request().Context(), userID, addr)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) listAddresses(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	all, err := h.engine.ListAddresses(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, all)
}

func (h *Handler) updateAddress(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var addr identity.AddressRecord
	if err := c.Bind(&addr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	addr.ID = id
	updated, err := h.engine.UpdateAddress(c.Request().Context(), userID, addr)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteAddress(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.engine.DeleteAddress(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Address deleted"})
}

// ---- admin lifecycle ----

func (h *Handler) registerAdmin(c echo.Context) error {
	var req emailPassword
	if err := bindRequired(c, &req, func() bool { return req.Email != "" && req.Password != "" }); err != nil {
		return err
	}
	ident, err := h.engine.RegisterAdmin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ident)
}

func (h *Handler) setAdminStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		Active *bool `json:"active"`
	}
	if err := bindRequired(c, &req, func() bool { return req.Active != nil }); err != nil {
		return err
	}
	if err := h.engine.SetAdminActive(c.Request().Context(), id, *req.Active); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Admin status updated"})
}

func (h *Handler) showAdmins(c echo.Context) error {
	admins, err := h.engine.ListAdmins(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, admins)
}

func (h *Handler) deleteAdmin(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.engine.DeleteAdmin(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Admin deleted"})
}
