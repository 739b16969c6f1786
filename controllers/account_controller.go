package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/miniblog/repository"
	"github.com/cppla/miniblog/utils"
)

// AccountController handles account creation, login and listing.
type AccountController struct {
	store repository.Store
}

// NewAccountController creates a new AccountController instance.
func NewAccountController(store repository.Store) *AccountController {
	return &AccountController{store: store}
}

// ListUsers returns every account. Passwords are never serialized.
func (a *AccountController) ListUsers(ctx *gin.Context) {
	accounts, err := a.store.ListAccounts(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	ctx.JSON(200, accounts)
}

// CreateAccount registers a new username.
func (a *AccountController) CreateAccount(ctx *gin.Context) {
	var req accountRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}
	username := req.username()
	if err := requireFields([2]string{"user", username}, [2]string{"password", req.Password}); err != nil {
		utils.Fail(ctx, err)
		return
	}

	account, err := a.store.CreateAccount(ctx.Request.Context(), repository.AccountInput{
		Username: username,
		Password: req.Password,
		Avatar:   firstNonEmpty(req.Avatar),
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Sugar.Infof("account created username=%s", account.Username)
	utils.Success(ctx, gin.H{"account": account})
}

// Login checks a username/password pair. No session is created.
func (a *AccountController) Login(ctx *gin.Context) {
	var req accountRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}
	username := req.username()
	if err := requireFields([2]string{"user", username}, [2]string{"password", req.Password}); err != nil {
		utils.Fail(ctx, err)
		return
	}

	account, err := a.store.VerifyCredentials(ctx.Request.Context(), username, req.Password)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"account": account})
}
