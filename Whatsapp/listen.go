package Whatsapp

import (
	"Aegis/Constants"
	"Aegis/Models"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// CheckWPLogin asks the gateway whether a WhatsApp device is linked.
func CheckWPLogin() (bool, error) {
	res, err := http.Get(Constants.WhatsappGoService + "/app/devices")
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return false, err
	}

	var output struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Results []struct {
			Name   string `json:"name"`
			Device string `json:"device"`
		} `json:"results"`
	}
	if err = json.Unmarshal(body, &output); err != nil {
		return false, err
	}
	return len(output.Results) > 0, nil
}

// LoginStatus reports the gateway session state to the dashboard.
func LoginStatus(c *fiber.Ctx) error {
	loggedIn, err := CheckWPLogin()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check login status",
		})
	}
	return c.JSON(fiber.Map{"logged_in": loggedIn})
}

// GetQRCode fetches the pairing QR code from the gateway and streams it
// back as a PNG so an admin can link the shop's WhatsApp number.
func GetQRCode(c *fiber.Ctx) error {
	res, err := http.Get(Constants.WhatsappGoService + "/app/login")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get QR link",
		})
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read response body",
		})
	}

	var output struct {
		Results struct {
			QRLink string `json:"qr_link"`
		} `json:"results"`
	}
	if err = json.Unmarshal(body, &output); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to parse response",
		})
	}

	qrRes, err := http.Get(output.Results.QRLink)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get QR code",
		})
	}
	defer qrRes.Body.Close()

	qrBody, err := io.ReadAll(qrRes.Body)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read QR code",
		})
	}

	c.Set("Content-Disposition", "attachment; filename=qr.png")
	c.Set("Content-Type", "image/png")
	return c.Send(qrBody)
}

// SendMessage posts one text message to a phone number through the
// gateway.
func SendMessage(phone, message string) error {
	payload, err := json.Marshal(fiber.Map{
		"phone":   phone,
		"message": message,
	})
	if err != nil {
		return err
	}

	res, err := http.Post(Constants.WhatsappGoService+"/send/message", "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("whatsapp gateway returned %d: %s", res.StatusCode, body)
	}
	return nil
}

// SendVehicleReady tells the customer their car is done. Called from
// finalize when the task has a customer phone on file.
func SendVehicleReady(phone, customerName, vehicle string) error {
	message := fmt.Sprintf(
		"Hi %s, your %s is ready for pickup. The installed film needs 48 hours before washing. Thank you for choosing us!",
		customerName, vehicle,
	)
	return SendMessage(phone, message)
}

// NotifyVehicleReady lets the front desk re-send the pickup message when
// a customer hasn't shown up. The route sits behind the session
// middleware so it fails fast when no device is linked.
// POST /api/tasks/:id/notify-ready
func NotifyVehicleReady(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid task ID",
		})
	}

	var task Models.Task
	if err := Models.DB.First(&task, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Task not found",
		})
	}
	if task.CustomerPhone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Task has no customer phone on file",
		})
	}

	vehicle := fmt.Sprintf("%s %s", task.VehicleMake, task.VehicleModel)
	if err := SendVehicleReady(task.CustomerPhone, task.CustomerName, vehicle); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "Failed to send pickup message",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Pickup message sent",
	})
}
