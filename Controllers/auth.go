package Controllers

import (
	"Aegis/Constants"
	"Aegis/Models"
	"Aegis/middleware"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterUserRequest struct {
	Name       string `json:"name" validate:"required"`
	Username   string `json:"username" validate:"required,min=3,max=64"`
	Password   string `json:"password" validate:"required,min=6"`
	Phone      string `json:"phone"`
	Permission int    `json:"permission" validate:"min=1,max=4"`
}

type UpdateUserRequest struct {
	Id         uint   `json:"id" validate:"required"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	Permission int    `json:"permission" validate:"omitempty,min=1,max=4"`
}

func signToken(userID uint) (string, error) {
	claims := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{
		Issuer:    strconv.Itoa(int(userID)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24)),
	})
	return claims.SignedString([]byte(Constants.JWTSecret))
}

// Login checks the credentials and hands back a JWT, both as an
// HttpOnly cookie for the dashboard and in the body for the mobile app.
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	var user Models.User
	if err := Models.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "User not found",
		})
	}

	if err := bcrypt.CompareHashAndPassword(user.Password, []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Incorrect password",
		})
	}

	if user.IsApproved != 1 {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Account pending approval",
		})
	}

	token, err := signToken(user.Id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not login",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    token,
		Expires:  time.Now().Add(time.Hour * 24),
		HTTPOnly: true,
	})

	return c.JSON(fiber.Map{
		"message": "success",
		"token":   token,
		"user":    user,
	})
}

// Logout expires the session cookie.
func Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{
		"message": "success",
	})
}

// User returns the account behind the request's token.
func User(c *fiber.Ctx) error {
	tokenString := middleware.TokenFromRequest(c)
	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Not Logged In.",
		})
	}
	user, err := middleware.UserFromToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid or expired token",
		})
	}
	return c.JSON(user)
}

// ValidateToken lets clients check a stored token before resuming work
// offline-first clients call this on launch.
func ValidateToken(c *fiber.Ctx) error {
	tokenString := middleware.TokenFromRequest(c)
	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"valid":   false,
			"message": "Not Logged In.",
		})
	}
	user, err := middleware.UserFromToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"valid":   false,
			"message": "Invalid or expired token",
		})
	}
	return c.JSON(fiber.Map{
		"valid": true,
		"user":  user,
	})
}

// SignUp is the public self-registration endpoint. New accounts start
// unapproved with technician permission until a manager accepts them.
func SignUp(c *fiber.Ctx) error {
	var req RegisterUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), 14)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not hash password",
		})
	}

	user := Models.User{
		Name:       req.Name,
		Username:   req.Username,
		Password:   hashed,
		Phone:      req.Phone,
		Permission: Models.PermissionTechnician,
		IsApproved: 0,
	}
	if err := Models.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Username already taken",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account created, waiting for approval",
	})
}

// RegisterUser lets an admin create a ready-to-use account with an
// explicit permission level.
func RegisterUser(c *fiber.Ctx) error {
	var req RegisterUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), 14)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not hash password",
		})
	}

	permission := req.Permission
	if permission == 0 {
		permission = Models.PermissionTechnician
	}

	user := Models.User{
		Name:       req.Name,
		Username:   req.Username,
		Password:   hashed,
		Phone:      req.Phone,
		Permission: permission,
		IsApproved: 1,
	}
	if err := Models.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Username already taken",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// UpdateUser applies the non-empty fields of the request to an account.
func UpdateUser(c *fiber.Ctx) error {
	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	var user Models.User
	if err := Models.DB.First(&user, req.Id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "User not found",
		})
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Permission != 0 {
		user.Permission = req.Permission
	}
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), 14)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not hash password",
			})
		}
		user.Password = hashed
	}

	if err := Models.DB.Save(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update user",
		})
	}

	return c.JSON(user)
}

// FetchUsers lists every account for the admin screen.
func FetchUsers(c *fiber.Ctx) error {
	var users []Models.User
	if err := Models.DB.Order("permission DESC, name ASC").Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not fetch users",
		})
	}
	return c.JSON(users)
}

// DeleteUser removes an account. Admins cannot delete themselves so the
// shop always keeps at least one working admin login.
func DeleteUser(c *fiber.Ctx) error {
	var req struct {
		Id uint `json:"id" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	caller, ok := getUserFromContext(c)
	if ok && caller.Id == req.Id {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "You cannot delete your own account",
		})
	}

	result := Models.DB.Delete(&Models.User{}, req.Id)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete user",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "User not found",
		})
	}

	return c.JSON(fiber.Map{
		"message": "success",
	})
}
