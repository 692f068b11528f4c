package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AutoCareLink/AutoCareLink/internal/common/errs"
	"github.com/AutoCareLink/AutoCareLink/internal/common/logger"
	"github.com/AutoCareLink/AutoCareLink/internal/scheduling"
	"github.com/AutoCareLink/AutoCareLink/internal/vehicle"
)

// Handlers 把登记用例与调度引擎接到 REST 边界。
// 字段形状校验（字段缺失/类型错误）在这里完成，业务规则在引擎里。
type Handlers struct {
	registry *vehicle.Registry
	engine   *scheduling.Engine
	log      logger.Logger
}

func New(registry *vehicle.Registry, engine *scheduling.Engine, log logger.Logger) *Handlers {
	return &Handlers{registry: registry, engine: engine, log: log}
}

// Register 挂载全部路由。/api/scheduling 下的管理端点由服务端
// RBAC 中间件按配置限定 admin 角色。
func (h *Handlers) Register(r *gin.Engine) error {
	api := r.Group("/api")

	api.POST("/vehicles", h.createVehicle)
	api.GET("/vehicles", h.listVehicles)
	api.GET("/vehicles/:vin", h.getVehicle)
	api.POST("/vehicles/:vin/odometer", h.addOdometerReading)
	api.GET("/vehicles/:vin/odometer", h.getOdometerReadings)

	sch := api.Group("/scheduling")
	sch.GET("/vehicle/:vin", h.getSchedulingVehicle)
	sch.GET("/available-technicians", h.listAvailableTechnicians)
	sch.POST("/schedule", h.scheduleService)
	sch.GET("/scheduled-services", h.listScheduledServices)
	sch.GET("/unassigned", h.listUnassignedServices)

	return nil
}

// writeError 按错误分类映射 HTTP 状态码；校验错误若携带阻塞服务单 ID
// 一并写回，方便前台引导用户先处理那张单。
func writeError(c *gin.Context, err error) {
	body := gin.H{"message": err.Error()}
	if id := errs.EntityIDOf(err); id != "" {
		body["serviceId"] = id
	}

	switch errs.KindOf(err) {
	case errs.KindValidation:
		c.JSON(http.StatusBadRequest, body)
	case errs.KindNotFound:
		c.JSON(http.StatusNotFound, body)
	case errs.KindAuthorization:
		c.JSON(http.StatusForbidden, body)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

type createVehicleRequest struct {
	Type            string `json:"type"`
	Make            string `json:"make"`
	Model           string `json:"model"`
	Year            int    `json:"year"`
	VIN             string `json:"VIN"`
	LastServiceDate string `json:"LastServiceDate"`
}

func (h *Handlers) createVehicle(c *gin.Context) {
	var req createVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON"})
		return
	}

	v, err := h.registry.Create(c.Request.Context(), vehicle.CreateVehicleInput{
		Type:            req.Type,
		Make:            req.Make,
		Model:           req.Model,
		Year:            req.Year,
		VIN:             req.VIN,
		LastServiceDate: req.LastServiceDate,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handlers) listVehicles(c *gin.Context) {
	out, err := h.registry.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) getVehicle(c *gin.Context) {
	v, err := h.registry.Get(c.Request.Context(), c.Param("vin"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type addReadingRequest struct {
	Mileage     *float64 `json:"mileage"`
	ServiceType string   `json:"serviceType"`
}

func (h *Handlers) addOdometerReading(c *gin.Context) {
	var req addReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Mileage == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "mileage must be a number"})
		return
	}

	res, err := h.engine.RecordReading(c.Request.Context(), scheduling.RecordReadingInput{
		VIN:         c.Param("vin"),
		Mileage:     int64(*req.Mileage),
		ServiceType: req.ServiceType,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	body := gin.H{
		"reading":            res.Reading,
		"nextServiceMileage": res.NextServiceMileage,
	}
	if res.ServiceID != "" {
		body["serviceId"] = res.ServiceID
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handlers) getOdometerReadings(c *gin.Context) {
	readings, err := h.engine.ListReadings(c.Request.Context(), c.Param("vin"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, readings)
}

func (h *Handlers) getSchedulingVehicle(c *gin.Context) {
	v, err := h.registry.Get(c.Request.Context(), c.Param("vin"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": v})
}

func (h *Handlers) listAvailableTechnicians(c *gin.Context) {
	out, err := h.engine.ListAvailableTechnicians(c.Request.Context(), c.Query("serviceType"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"technician": out})
}

type scheduleRequest struct {
	VehicleVIN     string `json:"vehicleVIN"`
	VehicleID      string `json:"vehicleId"`
	ServiceType    string `json:"serviceType"`
	DueServiceDate string `json:"dueServiceDate"`
	Description    string `json:"description"`
	TechnicianID   string `json:"technicianId"`
}

func (h *Handlers) scheduleService(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON"})
		return
	}

	due, err := parseDueDate(req.DueServiceDate)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.engine.ScheduleService(c.Request.Context(), scheduling.ScheduleServiceInput{
		VehicleVIN:     req.VehicleVIN,
		VehicleID:      req.VehicleID,
		ServiceType:    req.ServiceType,
		DueServiceDate: due,
		Description:    req.Description,
		TechnicianID:   req.TechnicianID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	msg := "Service scheduled"
	if res.Updated {
		msg = "Service updated"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "serviceId": res.ServiceID})
}

func (h *Handlers) listScheduledServices(c *gin.Context) {
	out, err := h.engine.ListScheduledServices(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scheduled_services": out})
}

func (h *Handlers) listUnassignedServices(c *gin.Context) {
	out, err := h.engine.ListUnassignedServices(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unassigned_services": out})
}

// parseDueDate 支持 RFC3339 与 YYYY-MM-DD 两种写法。
func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		return nil, errs.Validation("invalid dueServiceDate")
	}
	return &t, nil
}
