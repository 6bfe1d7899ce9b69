package handlers

import (
	"net/http"

	"supplierhub/internal/apperrors"
	"supplierhub/internal/middlewares"
	"supplierhub/internal/models"
	"supplierhub/internal/services"
	"supplierhub/internal/utils"
)

type SupplierHandler struct {
	supplierService services.SupplierService
	development     bool
}

func NewSupplierHandler(supplierService services.SupplierService, development bool) *SupplierHandler {
	return &SupplierHandler{supplierService: supplierService, development: development}
}

type supplierProfile struct {
	ID               string          `json:"id"`
	Phone            string          `json:"phone"`
	Email            string          `json:"email"`
	CompanyName      string          `json:"companyName"`
	ContactPerson    string          `json:"contactPerson"`
	ProfilePicture   string          `json:"profilePicture"`
	Address          *models.Address `json:"address"`
	Website          string          `json:"website"`
	TaxID            string          `json:"taxId"`
	BusinessType     []string        `json:"businessType"`
	YearsInBusiness  int             `json:"yearsInBusiness"`
	ProfileCompleted bool            `json:"profileCompleted"`
}

type mySupplierResponse struct {
	Success         bool             `json:"success"`
	User            supplierProfile  `json:"user"`
	Supplier        *models.Supplier `json:"supplier"`
	HasSupplierData bool             `json:"hasSupplierData"`
}

func (h *SupplierHandler) MySupplier(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewares.GetUser(r.Context())
	if !ok {
		utils.SendAppError(w, apperrors.ErrUnauthenticated, h.development)
		return
	}

	supplier, err := h.supplierService.MySupplier(r.Context(), user)
	if err != nil {
		utils.SendAppError(w, err, h.development)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, mySupplierResponse{
		Success: true,
		User: supplierProfile{
			ID:               user.ID.Hex(),
			Phone:            user.Phone,
			Email:            user.Email,
			CompanyName:      user.CompanyName,
			ContactPerson:    user.ContactPerson,
			ProfilePicture:   user.ProfilePicture,
			Address:          user.Address,
			Website:          user.Website,
			TaxID:            user.TaxID,
			BusinessType:     user.BusinessType,
			YearsInBusiness:  user.YearsInBusiness,
			ProfileCompleted: user.ProfileCompleted,
		},
		Supplier:        supplier,
		HasSupplierData: supplier != nil,
	})
}

// AuthTest echoes the identity the gate attached to the request.
func (h *SupplierHandler) AuthTest(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewares.GetUser(r.Context())
	if !ok {
		utils.SendAppError(w, apperrors.ErrUnauthenticated, h.development)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Authentication working",
		"user": map[string]interface{}{
			"id":          user.ID.Hex(),
			"phone":       user.Phone,
			"email":       user.Email,
			"hasSupplier": user.SupplierID != nil,
		},
	})
}

// Preview is served to anyone; signed-in callers also get their own view.
func (h *SupplierHandler) Preview(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"success":       true,
		"authenticated": false,
	}
	if user, ok := middlewares.GetUser(r.Context()); ok {
		resp["authenticated"] = true
		resp["user"] = h.supplierService.PublicUser(r.Context(), user)
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
