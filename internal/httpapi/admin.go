package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sohoz88/promo-site/internal/auth"
	"github.com/sohoz88/promo-site/internal/domain"
	apperrors "github.com/sohoz88/promo-site/internal/errors"
)

// MsgBonusNotFound is returned when a requested bonus does not exist.
const MsgBonusNotFound = "Bonus not found."

// LoginPage is the login form model.
type LoginPage struct {
	Authenticated bool   `json:"authenticated"`
	Redirect      string `json:"redirect"`
}

// EditBonusPage carries the bonus shown in the edit form.
type EditBonusPage struct {
	Bonus domain.Bonus `json:"bonus"`
}

type loginRequest struct {
	domain.LoginInput
	Redirect string `json:"redirect"`
}

func (h *Handler) loginPage(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, LoginPage{
		Authenticated: auth.IsAuthenticated(r),
		Redirect:      auth.SafeRedirect(r.URL.Query().Get(auth.RedirectParam)),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decode(r, &in); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if in.Redirect == "" {
		in.Redirect = r.URL.Query().Get(auth.RedirectParam)
	}

	res := h.auth.Login(r.Context(), w, in.LoginInput)
	if !res.Success {
		h.writeResult(w, http.StatusOK, res)
		return
	}

	http.Redirect(w, r, auth.SafeRedirect(in.Redirect), http.StatusSeeOther)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(w)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.bonuses.Stats(r.Context()))
}

func (h *Handler) listBonuses(r *http.Request) any {
	return h.bonuses.List(r.Context())
}

func (h *Handler) createBonus(w http.ResponseWriter, r *http.Request) {
	var in domain.BonusInput
	if err := decode(r, &in); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.writeResult(w, http.StatusCreated, h.bonuses.Create(r.Context(), in))
}

func (h *Handler) getBonus(w http.ResponseWriter, r *http.Request) {
	b := h.bonuses.GetByID(r.Context(), chi.URLParam(r, "id"))
	if b == nil {
		h.bonusNotFound(w)
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

func (h *Handler) editBonusPage(w http.ResponseWriter, r *http.Request) {
	b := h.bonuses.GetByID(r.Context(), chi.URLParam(r, "id"))
	if b == nil {
		h.bonusNotFound(w)
		return
	}
	h.writeJSON(w, http.StatusOK, EditBonusPage{Bonus: *b})
}

func (h *Handler) updateBonus(w http.ResponseWriter, r *http.Request) {
	var in domain.BonusInput
	if err := decode(r, &in); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.writeResult(w, http.StatusOK, h.bonuses.Update(r.Context(), chi.URLParam(r, "id"), in))
}

func (h *Handler) deleteBonus(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, http.StatusOK, h.bonuses.Delete(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) adminSettings(r *http.Request) any {
	return h.settings.Get(r.Context())
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var in domain.SettingsInput
	if err := decode(r, &in); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.writeResult(w, http.StatusOK, h.settings.Update(r.Context(), in))
}

func (h *Handler) bonusNotFound(w http.ResponseWriter) {
	h.writeJSON(w, http.StatusNotFound, domain.ActionResult{
		Error: MsgBonusNotFound,
		Kind:  string(apperrors.KindNotFound),
	})
}
