package middleware

import (
	"Aegis/Constants"
	"Aegis/Models"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// TokenFromRequest pulls the JWT from the Authorization header; the
// mobile app sends a bearer token while the dashboard relies on the
// cookie set at login.
func TokenFromRequest(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Cookies("jwt")
}

// UserFromToken resolves a signed token string to its user row.
func UserFromToken(tokenString string) (Models.User, error) {
	var user Models.User

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(Constants.JWTSecret), nil
	})
	if err != nil {
		return user, err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return user, jwt.ErrTokenInvalidClaims
	}

	result := Models.DB.Where("id = ?", claims.Issuer).First(&user)
	return user, result.Error
}

// Verify authenticates the request and checks the caller's permission
// level. The user row is stored in c.Locals("user") for handlers.
func Verify(requiredPermission int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := TokenFromRequest(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Not Logged In.",
			})
		}

		user, err := UserFromToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		if user.IsApproved != 1 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Account pending approval",
			})
		}

		c.Locals("user", user)

		if user.Permission >= requiredPermission {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Insufficient permissions to access this resource",
		})
	}
}
