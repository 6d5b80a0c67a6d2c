package hap

// Characteristic names a value exposed by a service
type Characteristic string

// Characteristics used by the battery accessories
const (
	Name             Characteristic = "Name"
	Manufacturer     Characteristic = "Manufacturer"
	Model            Characteristic = "Model"
	SerialNumber     Characteristic = "SerialNumber"
	On               Characteristic = "On"
	BatteryLevel     Characteristic = "BatteryLevel"
	StatusLowBattery Characteristic = "StatusLowBattery"
	StatusActive     Characteristic = "StatusActive"
	StatusFault      Characteristic = "StatusFault"
)

// StatusLowBattery values
const (
	BatteryLevelNormal = 0
	BatteryLevelLow    = 1
)

// StatusFault values
const (
	NoFault      = 0
	GeneralFault = 1
)

// ServiceType identifies the kind of a service
type ServiceType string

// Service types
const (
	AccessoryInformation ServiceType = "AccessoryInformation"
	Switch               ServiceType = "Switch"
)
