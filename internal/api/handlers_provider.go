/**
 * @description
 * Back-office endpoints for payment provider management: onboarding with key
 * issuance, key rotation, rename, deactivation, and reactivation.
 *
 * @notes
 * - Onboarding and rotation are the only responses that ever carry a raw API
 *   key. It is not retrievable afterwards.
 */

package api

import (
	"net/http"

	"github.com/mobipay/account-service/internal/domain"
)

// CreateProviderHandler onboards a provider and returns its one-time raw key.
func (h *Handlers) CreateProviderHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProviderRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	creds, err := h.service.CreateProvider(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, creds)
}

// ListProvidersHandler lists all providers, active and inactive.
func (h *Handlers) ListProvidersHandler(w http.ResponseWriter, r *http.Request) {
	providers, err := h.service.ListProviders(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if providers == nil {
		providers = []domain.Provider{}
	}
	h.writeJSON(w, http.StatusOK, providers)
}

// GetProviderHandler returns one provider.
func (h *Handlers) GetProviderHandler(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.pathInt64(w, r, "providerID")
	if !ok {
		return
	}
	provider, err := h.service.GetProvider(r.Context(), providerID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, provider)
}

// UpdateProviderNameHandler renames a provider.
func (h *Handlers) UpdateProviderNameHandler(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.pathInt64(w, r, "providerID")
	if !ok {
		return
	}
	var req domain.UpdateProviderRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	provider, err := h.service.UpdateProviderName(r.Context(), providerID, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, provider)
}

// RegenerateProviderKeyHandler rotates a provider's API key.
func (h *Handlers) RegenerateProviderKeyHandler(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.pathInt64(w, r, "providerID")
	if !ok {
		return
	}
	creds, err := h.service.RegenerateProviderKey(r.Context(), providerID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, creds)
}

// DeactivateProviderHandler disables a provider and its key.
func (h *Handlers) DeactivateProviderHandler(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.pathInt64(w, r, "providerID")
	if !ok {
		return
	}
	provider, err := h.service.DeactivateProvider(r.Context(), providerID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, provider)
}

// ReactivateProviderHandler re-enables a provider.
func (h *Handlers) ReactivateProviderHandler(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.pathInt64(w, r, "providerID")
	if !ok {
		return
	}
	provider, err := h.service.ReactivateProvider(r.Context(), providerID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, provider)
}
