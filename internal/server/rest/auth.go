package rest

import (
	"net/http"

	"github.com/dmitrijs2005/taskflow/internal/server/auth"
	"github.com/dmitrijs2005/taskflow/internal/server/validation"
)

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var cmd validation.SignupCommand
	if err := bind(w, r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.Signup(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "user created, check your email for a verification code",
		Data:    user,
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var cmd validation.LoginCommand
	if err := bind(w, r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.throttle(r.Context(), "login:"+cmd.Email, h.loginLimit); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.users.Login(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, res.ExpiresIn, h.production)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "logged in", Token: res.Token})
}

// Logout clears the session cookie. Tokens are stateless, so a bearer token
// stays valid until it expires.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.production)
	writeMessage(w, http.StatusOK, "logged out")
}

func (h *Handlers) SendOTP(w http.ResponseWriter, r *http.Request) {
	var cmd validation.SendOTPCommand
	if err := bind(w, r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.throttle(r.Context(), "otp:"+cmd.Email, h.otpLimit); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.otp.Send(r.Context(), cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "verification code sent")
}

func (h *Handlers) ConfirmOTP(w http.ResponseWriter, r *http.Request) {
	var cmd validation.ConfirmOTPCommand
	if err := bind(w, r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.throttle(r.Context(), "otp-confirm:"+cmd.Email, h.otpLimit); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.otp.Verify(r.Context(), cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "verification successful")
}

func (h *Handlers) GoogleURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.oauth.AuthorizationURL(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": url})
}

func (h *Handlers) GoogleStatus(w http.ResponseWriter, r *http.Request) {
	linked, err := h.oauth.Status(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, linked)
}

// GoogleCallback accepts code and state from the query string (provider
// redirect) or from a JSON body (frontend relay).
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	var cmd validation.OAuthCallbackCommand
	if r.Method == http.MethodPost {
		if err := decodeJSON(w, r, &cmd); err != nil {
			h.writeError(w, r, err)
			return
		}
	} else {
		q := r.URL.Query()
		cmd.Code = q.Get("code")
		cmd.State = q.Get("state")
	}
	if err := cmd.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	linked, err := h.oauth.HandleCallback(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "google account linked", Data: linked})
}
