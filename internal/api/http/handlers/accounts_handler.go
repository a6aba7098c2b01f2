package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AccountsHandler exposes admin account management.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accounts}
}

// List handles GET /v1/accounts.
func (h *AccountsHandler) List(c *fiber.Ctx) error {
	admin, err := currentAccount(c)
	if err != nil {
		return err
	}
	var filter repository.AccountFilter
	if role := optionalQuery(c, "role"); role != nil {
		r := domain.Role(*role)
		filter.Role = &r
	}
	list, err := h.accounts.ListAccounts(c.UserContext(), admin, filter)
	if err != nil {
		return err
	}
	resp := make([]dto.AccountResponse, 0, len(list))
	for i := range list {
		resp = append(resp, accountResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// ChangeRole handles PATCH /v1/accounts/:id/role. Demoting the last admin
// answers 200 with changed=false.
func (h *AccountsHandler) ChangeRole(c *fiber.Ctx) error {
	admin, err := currentAccount(c)
	if err != nil {
		return err
	}
	var req dto.ChangeRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	account, changed, err := h.accounts.ChangeRole(c.UserContext(), admin, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChangeRoleResponse{Account: accountResponse(account), Changed: changed}})
}

// Delete handles DELETE /v1/accounts/:id.
func (h *AccountsHandler) Delete(c *fiber.Ctx) error {
	admin, err := currentAccount(c)
	if err != nil {
		return err
	}
	deleted, err := h.accounts.DeleteAccount(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": c.Params("id"), "deleted": deleted}})
}
