package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AutoCareLink/AutoCareLink/internal/common/errs"
	"github.com/AutoCareLink/AutoCareLink/internal/maintenance"
	"github.com/AutoCareLink/AutoCareLink/internal/technician"
	"github.com/AutoCareLink/AutoCareLink/internal/vehicle"
)

// fixedClock 固定时间源，让档期与时间戳可控。
type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

// memVehicles 内存车辆存储。
type memVehicles struct {
	items     map[string]*vehicle.Vehicle
	updateErr error
}

func newMemVehicles() *memVehicles {
	return &memVehicles{items: make(map[string]*vehicle.Vehicle)}
}

func (m *memVehicles) FindByVIN(_ context.Context, vin string) (*vehicle.Vehicle, error) {
	return m.items[vin], nil
}

func (m *memVehicles) Update(_ context.Context, v *vehicle.Vehicle) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.items[v.VIN] = v
	return nil
}

// memServices 内存服务单存储，同时充当技师占用查询的数据源。
type memServices struct {
	items     []*maintenance.Service
	createErr error
}

func (m *memServices) FindOpenUnpaidByVIN(_ context.Context, vin string) (*maintenance.Service, error) {
	for i := len(m.items) - 1; i >= 0; i-- {
		s := m.items[i]
		if s.VehicleVIN == vin && maintenance.IsOpenUnpaid(s) {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memServices) FindLatestUnassignedByVIN(_ context.Context, vin string) (*maintenance.Service, error) {
	for i := len(m.items) - 1; i >= 0; i-- {
		s := m.items[i]
		if s.VehicleVIN == vin && s.Status == maintenance.StatusUnassigned {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memServices) Create(_ context.Context, s *maintenance.Service) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.items = append(m.items, s)
	return nil
}

func (m *memServices) Update(_ context.Context, s *maintenance.Service) error {
	for i := range m.items {
		if m.items[i].ID == s.ID {
			m.items[i] = s
			return nil
		}
	}
	m.items = append(m.items, s)
	return nil
}

func (m *memServices) ListUnassigned(_ context.Context) ([]maintenance.Service, error) {
	out := make([]maintenance.Service, 0)
	for _, s := range m.items {
		if s.TechnicianID == "" && s.TechnicianName == "" {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memServices) List(_ context.Context) ([]maintenance.Service, error) {
	out := make([]maintenance.Service, 0, len(m.items))
	for _, s := range m.items {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memServices) HasActiveAssignment(_ context.Context, technicianID, excludeServiceID string) (bool, error) {
	for _, s := range m.items {
		if s.ID == excludeServiceID {
			continue
		}
		if s.TechnicianID == technicianID && s.Status != maintenance.StatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (m *memServices) HasActiveUnpaidAssignment(_ context.Context, technicianID string) (bool, error) {
	for _, s := range m.items {
		if s.TechnicianID == technicianID && maintenance.IsOpenUnpaid(s) {
			return true, nil
		}
	}
	return false, nil
}

// memTechs 内存技师目录。
type memTechs struct {
	items []technician.Technician
}

func (m *memTechs) FindByID(_ context.Context, id string) (*technician.Technician, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			return &m.items[i], nil
		}
	}
	return nil, nil
}

func (m *memTechs) List(_ context.Context) ([]technician.Technician, error) {
	return m.items, nil
}

// 2025-06-02 是周一
var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func newTestEngine() (*Engine, *memVehicles, *memServices, *memTechs) {
	vehicles := newMemVehicles()
	services := &memServices{}
	techs := &memTechs{items: []technician.Technician{
		{ID: "T1", FirstName: "Alice", LastName: "Wong", Skills: "Oil Change,Brake Check", Availability: "monday,wednesday"},
		{ID: "T2", FirstName: "Bob", LastName: "Lee", Skills: "Tire Rotation", Availability: "monday"},
	}}
	index := technician.NewIndex(techs, services)
	engine := NewEngine(vehicles, services, techs, index, fixedClock{t: testNow}, nil)
	return engine, vehicles, services, techs
}

func seedVehicle(vehicles *memVehicles, vin, vtype string) *vehicle.Vehicle {
	v := &vehicle.Vehicle{VIN: vin, Type: vtype, Make: "Toyota", Model: "Hilux", Year: 2022}
	vehicles.items[vin] = v
	return v
}

func TestRecordReadingInitialCreatesService(t *testing.T) {
	engine, vehicles, services, _ := newTestEngine()
	seedVehicle(vehicles, "VIN1", "Car")

	res, err := engine.RecordReading(context.Background(), RecordReadingInput{
		VIN: "VIN1", Mileage: 5000, ServiceType: "Oil Change",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reading.ReadingID != "R001" {
		t.Fatalf("expected R001, got %s", res.Reading.ReadingID)
	}
	if res.NextServiceMileage != 15000 {
		t.Fatalf("expected next threshold 15000, got %d", res.NextServiceMileage)
	}
	if res.ServiceID == "" {
		t.Fatalf("expected a service to be created")
	}
	if len(services.items) != 1 {
		t.Fatalf("expected 1 persisted service, got %d", len(services.items))
	}
	svc := services.items[0]
	if svc.Status != maintenance.StatusUnassigned || svc.ReadingID != "R001" || svc.ServiceType != "Oil Change" {
		t.Fatalf("unexpected service %+v", svc)
	}
	v := vehicles.items["VIN1"]
	if len(v.Readings) != 1 || v.NextServiceMileage != 15000 {
		t.Fatalf("ledger not updated: %+v", v)
	}
}

func TestRecordReadingTruckInterval(t *testing.T) {
	engine, vehicles, _, _ := newTestEngine()
	seedVehicle(vehicles, "TRK1", "Truck")

	res, err := engine.RecordReading(context.Background(), RecordReadingInput{
		VIN: "TRK1", Mileage: 30000, ServiceType: "Brake Check",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NextServiceMileage != 50000 {
		t.Fatalf("expected truck threshold 50000, got %d", res.NextServiceMileage)
	}
}

func TestRecordReadingVehicleMissing(t *testing.T) {
	engine, _, _, _ := newTestEngine()

	_, err := engine.RecordReading(context.Background(), RecordReadingInput{VIN: "NOPE", Mileage: 100, ServiceType: "Oil Change"})
	if !errs.IsNotFound(err) || err.Error() != "Vehicle VIN does not exist." {
		t.Fatalf("expected vehicle missing rejection, got %v", err)
	}

	_, err = engine.RecordReading(context.Background(), RecordReadingInput{Mileage: 100})
	if err == nil || err.Error() != "VIN is required" {
		t.Fatalf("expected VIN required, got %v", err)
	}
}

func TestRecordReadingMonotonicity(t *testing.T) {
	engine, vehicles, _, _ := newTestEngine()
	v := seedVehicle(vehicles, "VIN1", "Car")
	v.Readings = []vehicle.OdometerReading{{ReadingID: "R001", Mileage: 5000, RecordedAt: testNow.Add(-time.Hour)}}
	v.NextServiceMileage = 15000

	_, err := engine.RecordReading(context.Background(), RecordReadingInput{VIN: "VIN1", Mileage: 5000, ServiceType: "Oil Change"})
	if err == nil || err.Error() != "Mileage must be greater than the last recorded value." {
		t.Fatalf("expected monotonicity rejection, got %v", err)
	}
	if len(v.Readings) != 1 {
		t.Fatalf("ledger must stay unchanged on rejection")
	}
}

func TestRecordReadingClockBehindLatest(t *testing.T) {
	engine, vehicles, _, _ := newTestEngine()
	v := seedVehicle(vehicles, "VIN1", "Car")
	v.Readings = []vehicle.OdometerReading{{ReadingID: "R001", Mileage: 5000, RecordedAt: testNow.Add(time.Hour)}}
	v.NextServiceMileage = 15000

	_, err := engine.RecordReading(context.Background(), RecordReadingInput{VIN: "VIN1", Mileage: 20000, ServiceType: "Oil Change"})
	if err == nil || err.Error() != "Request can't be processed right now." {
		t.Fatalf("expected clock rejection, got %v", err)
	}
}

func TestRecordReadingBlockedByOpenUnpaid(t *testing.T) {
	engine, vehicles, services, _ := newTestEngine()
	v := seedVehicle(vehicles, "VIN1", "Car")
	v.Readings = []vehicle.OdometerReading{{ReadingID: "R001", Mileage: 5000, RecordedAt: testNow.Add(-time.Hour)}}
	v.NextServiceMileage = 15000
	services.items = append(services.items, &maintenance.Service{
		ID: "S1", VehicleVIN: "VIN1", ServiceType: "Oil Change", Status: maintenance.StatusUnassigned,
	})

	_, err := engine.RecordReading(context.Background(), RecordReadingInput{VIN: "VIN1", Mileage: 16000, ServiceType: "Brake Check"})
	if err == nil || !errs.IsValidation(err) {
		t.Fatalf("expected unpaid gate rejection, got %v", err)
	}
	if errs.EntityIDOf(err) != "S1" {
		t.Fatalf("expected blocking service id S1, got %q", errs.EntityIDOf(err))
	}
	if len(v.Readings) != 1 || len(services.items) != 1 {
		t.Fatalf("rejection must not write anything")
	}
}

func TestRecordReadingNotDueYet(t *testing.T) {
	engine, vehicles, services, _ := newTestEngine()
	v := seedVehicle(vehicles, "VIN1", "Car")
	v.Readings = []vehicle.OdometerReading{{ReadingID: "R001", Mileage: 5000, RecordedAt: testNow.Add(-time.Hour)}}
	v.NextServiceMileage = 15000
	services.items = append(services.items, &maintenance.Service{
		ID: "S1", VehicleVIN: "VIN1", Status: maintenance.StatusCompleted, PaymentStatus: maintenance.PaymentPaid,
	})

	_, err := engine.RecordReading(context.Background(), RecordReadingInput{VIN: "VIN1", Mileage: 12000})
	if err == nil || err.Error() != "Mileage is less than nextServiceMileage; reading not added until due" {
		t.Fatalf("expected not-due rejection, got %v", err)
	}
	if len(v.Readings) != 1 {
		t.Fatalf("ledger must still hold only R001")
	}
}

func TestRecordReadingDueCreatesNextService(t *testing.T) {
	engine, vehicles, services, _ := newTestEngine()
	v := seedVehicle(vehicles, "VIN1", "Car")
	v.Readings = []vehicle.OdometerReading{{ReadingID: "R001", Mileage: 5000, RecordedAt: testNow.Add(-time.Hour)}}
	v.NextServiceMileage = 15000
	services.items = append(services.items, &maintenance.Service{
		ID: "S1", VehicleVIN: "VIN1", Status: maintenance.StatusCompleted, PaymentStatus: maintenance.PaymentPaid,
	})

	res, err := engine.RecordReading(context.Background(), RecordReadingInput{VIN: "VIN1", Mileage: 16000, ServiceType: "Brake Check"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reading.ReadingID != "R002" {
		t.Fatalf("expected R002, got %s", res.Reading.ReadingID)
	}
	if res.NextServiceMileage != 26000 {
		t.Fatalf("expected next threshold 26000, got %d", res.NextServiceMileage)
	}
	if len(services.items) != 2 {
		t.Fatalf("expected a second service, got %d", len(services.items))
	}
}

func TestRecordReadingServiceTypeRequired(t *testing.T) {
	engine, vehicles, _, _ := newTestEngine()
	seedVehicle(vehicles, "VIN1", "Car")

	_, err := engine.RecordReading(context.Background(), RecordReadingInput{VIN: "VIN1", Mileage: 5000})
	if err == nil || err.Error() != "serviceType is required when creating an initial service" {
		t.Fatalf("expected initial serviceType rejection, got %v", err)
	}

	_, err = engine.RecordReading(context.Background(), RecordReadingInput{VIN: "VIN1", Mileage: 0, ServiceType: "Oil Change"})
	if err == nil || err.Error() != "Invalid mileage for initial reading" {
		t.Fatalf("expected invalid initial mileage, got %v", err)
	}

	v := vehicles.items["VIN1"]
	v.Readings = []vehicle.OdometerReading{{ReadingID: "R001", Mileage: 5000, RecordedAt: testNow.Add(-time.Hour)}}
	v.NextServiceMileage = 15000
	_, err = engine.RecordReading(context.Background(), RecordReadingInput{VIN: "VIN1", Mileage: 16000})
	if err == nil || err.Error() != "serviceType is required when mileage meets or exceeds nextServiceMileage" {
		t.Fatalf("expected due serviceType rejection, got %v", err)
	}
}

func TestRecordReadingServiceCreateFailureLeavesLedger(t *testing.T) {
	engine, vehicles, services, _ := newTestEngine()
	v := seedVehicle(vehicles, "VIN1", "Car")
	services.createErr = errors.New("db down")

	_, err := engine.RecordReading(context.Background(), RecordReadingInput{VIN: "VIN1", Mileage: 5000, ServiceType: "Oil Change"})
	if err == nil || errs.KindOf(err) != errs.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if len(v.Readings) != 0 || v.NextServiceMileage != 0 {
		t.Fatalf("ledger must stay untouched when service create fails: %+v", v)
	}
}

func TestListReadings(t *testing.T) {
	engine, vehicles, _, _ := newTestEngine()
	seedVehicle(vehicles, "VIN1", "Car")

	got, err := engine.ListReadings(context.Background(), "VIN1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}

	_, err = engine.ListReadings(context.Background(), "NOPE")
	if !errs.IsNotFound(err) || err.Error() != "Vehicle not found." {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestScheduleServiceCreatesAndBinds(t *testing.T) {
	engine, vehicles, services, _ := newTestEngine()
	seedVehicle(vehicles, "VIN1", "Car")

	res, err := engine.ScheduleService(context.Background(), ScheduleServiceInput{
		VehicleVIN: "VIN1", ServiceType: "Oil Change", TechnicianID: "T1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Updated {
		t.Fatalf("expected a fresh service, not an update")
	}
	if len(services.items) != 1 {
		t.Fatalf("expected 1 service, got %d", len(services.items))
	}
	svc := services.items[0]
	if svc.TechnicianID != "T1" || svc.TechnicianName != "Alice Wong" {
		t.Fatalf("expected technician bound, got %+v", svc)
	}
}

func TestScheduleServiceUpdatesExistingUnassigned(t *testing.T) {
	engine, vehicles, services, _ := newTestEngine()
	seedVehicle(vehicles, "VIN1", "Car")
	services.items = append(services.items, &maintenance.Service{
		ID: "S1", VehicleVIN: "VIN1", ServiceType: "Oil Change", Status: maintenance.StatusUnassigned,
	})

	res, err := engine.ScheduleService(context.Background(), ScheduleServiceInput{
		VehicleVIN: "VIN1", TechnicianID: "T1", Description: "recurring customer",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Updated || res.ServiceID != "S1" {
		t.Fatalf("expected in-place update of S1, got %+v", res)
	}
	if len(services.items) != 1 {
		t.Fatalf("must not create a second service, got %d", len(services.items))
	}
	svc := services.items[0]
	if svc.ServiceType != "Oil Change" {
		t.Fatalf("expected serviceType defaulted from existing, got %s", svc.ServiceType)
	}
	if svc.TechnicianID != "T1" || svc.Description != "recurring customer" {
		t.Fatalf("unexpected updated service %+v", svc)
	}
}

func TestScheduleServiceVehicleResolution(t *testing.T) {
	engine, vehicles, _, _ := newTestEngine()
	seedVehicle(vehicles, "VIN1", "Car")

	_, err := engine.ScheduleService(context.Background(), ScheduleServiceInput{})
	if err == nil || err.Error() != "vehicleVIN or vehicleId is required" {
		t.Fatalf("expected identifier rejection, got %v", err)
	}

	_, err = engine.ScheduleService(context.Background(), ScheduleServiceInput{VehicleVIN: "NOPE", ServiceType: "Oil Change"})
	if !errs.IsNotFound(err) || err.Error() != "Vehicle not found" {
		t.Fatalf("expected vehicle not found, got %v", err)
	}

	// 旧接口的 vehicleId 同样按 VIN 解析
	res, err := engine.ScheduleService(context.Background(), ScheduleServiceInput{VehicleID: "VIN1", ServiceType: "Oil Change"})
	if err != nil || res.Updated {
		t.Fatalf("expected create via vehicleId, got %+v %v", res, err)
	}
}

func TestScheduleServiceTechnicianGates(t *testing.T) {
	engine, vehicles, services, _ := newTestEngine()
	seedVehicle(vehicles, "VIN1", "Car")
	seedVehicle(vehicles, "VIN2", "Car")
	ctx := context.Background()

	_, err := engine.ScheduleService(ctx, ScheduleServiceInput{VehicleVIN: "VIN1", ServiceType: "Oil Change", TechnicianID: "T9"})
	if !errs.IsNotFound(err) || err.Error() != "Technician not found" {
		t.Fatalf("expected technician not found, got %v", err)
	}

	_, err = engine.ScheduleService(ctx, ScheduleServiceInput{VehicleVIN: "VIN1", ServiceType: "Oil Change", TechnicianID: "T2"})
	if err == nil || err.Error() != "Technician does not have the required skill" {
		t.Fatalf("expected skill rejection, got %v", err)
	}
	if len(services.items) != 0 {
		t.Fatalf("rejected assignment must not persist a service")
	}

	// T1 在 VIN1 上有在手服务单，另一辆车不能再指派
	if _, err := engine.ScheduleService(ctx, ScheduleServiceInput{VehicleVIN: "VIN1", ServiceType: "Oil Change", TechnicianID: "T1"}); err != nil {
		t.Fatalf("first assignment: %v", err)
	}
	_, err = engine.ScheduleService(ctx, ScheduleServiceInput{VehicleVIN: "VIN2", ServiceType: "Brake Check", TechnicianID: "T1"})
	if err == nil || err.Error() != "Technician already has an active assignment" {
		t.Fatalf("expected busy rejection, got %v", err)
	}
	if len(services.items) != 1 {
		t.Fatalf("busy rejection must not persist, got %d services", len(services.items))
	}
}

func TestScheduleServiceReconfirmSameService(t *testing.T) {
	engine, vehicles, services, _ := newTestEngine()
	seedVehicle(vehicles, "VIN1", "Car")
	services.items = append(services.items, &maintenance.Service{
		ID: "S1", VehicleVIN: "VIN1", ServiceType: "Oil Change", Status: maintenance.StatusUnassigned,
	})

	// 同一张待排期单上换绑技师：占用检查排除该单自身
	res, err := engine.ScheduleService(context.Background(), ScheduleServiceInput{
		VehicleVIN: "VIN1", TechnicianID: "T1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Updated {
		t.Fatalf("expected update path")
	}
}

func TestScheduleServiceRequiresType(t *testing.T) {
	engine, vehicles, _, _ := newTestEngine()
	seedVehicle(vehicles, "VIN1", "Car")

	_, err := engine.ScheduleService(context.Background(), ScheduleServiceInput{VehicleVIN: "VIN1"})
	if err == nil || err.Error() != "serviceType is required" {
		t.Fatalf("expected serviceType rejection, got %v", err)
	}
}

func TestListAvailableTechniciansToday(t *testing.T) {
	engine, _, services, _ := newTestEngine()
	ctx := context.Background()

	got, err := engine.ListAvailableTechnicians(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both technicians free on monday, got %d", len(got))
	}

	// T1 手头有未支付服务单后从可用列表消失
	services.items = append(services.items, &maintenance.Service{
		ID: "S1", VehicleVIN: "VIN1", Status: maintenance.StatusUnassigned, TechnicianID: "T1", TechnicianName: "Alice Wong",
	})
	got, err = engine.ListAvailableTechnicians(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "T2" {
		t.Fatalf("expected only T2, got %+v", got)
	}
}

func TestListUnassignedServicesEnrichesVehicle(t *testing.T) {
	engine, vehicles, services, _ := newTestEngine()
	seedVehicle(vehicles, "VIN1", "Car")
	services.items = append(services.items,
		&maintenance.Service{ID: "S1", VehicleVIN: "VIN1", Status: maintenance.StatusUnassigned},
		&maintenance.Service{ID: "S2", VehicleVIN: "VIN1", Status: maintenance.StatusUnassigned, TechnicianID: "T1", TechnicianName: "Alice Wong"},
	)

	got, err := engine.ListUnassignedServices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "S1" {
		t.Fatalf("expected only the unassigned S1, got %+v", got)
	}
	if got[0].VehicleMake != "Toyota" || got[0].VehicleModel != "Hilux" || got[0].VehicleYear != 2022 {
		t.Fatalf("expected vehicle enrichment, got %+v", got[0])
	}
}
