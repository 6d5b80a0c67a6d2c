package sonnen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Endpoints of the local API
const (
	EndpointStatus         = "status"
	EndpointLatestData     = "latestdata"
	EndpointConfigurations = "configurations"
	EndpointInverter       = "inverter"
)

// Number is a numeric field some firmware versions report as a string
type Number float64

// UnmarshalJSON accepts 40, 40.5, "40" and null
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("numeric string %q: %w", s, err)
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// Float64 returns the value as float64
func (n Number) Float64() float64 {
	return float64(n)
}

// BatteryStatus is the flat record returned by /status.
// Pac_total_W greater than zero means the inverter is discharging.
type BatteryStatus struct {
	ApparentOutput            float64  `json:"Apparent_output"`
	BackupBuffer              Number   `json:"BackupBuffer"`
	BatteryCharging           bool     `json:"BatteryCharging"`
	BatteryDischarging        bool     `json:"BatteryDischarging"`
	ConsumptionW              float64  `json:"Consumption_W"`
	Fac                       float64  `json:"Fac"`
	FlowConsumptionBattery    bool     `json:"FlowConsumptionBattery"`
	FlowConsumptionGrid       bool     `json:"FlowConsumptionGrid"`
	FlowConsumptionProduction bool     `json:"FlowConsumptionProduction"`
	FlowGridBattery           bool     `json:"FlowGridBattery"`
	FlowProductionBattery     bool     `json:"FlowProductionBattery"`
	FlowProductionGrid        bool     `json:"FlowProductionGrid"`
	GridFeedInW               float64  `json:"GridFeedIn_W"`
	IsSystemInstalled         Number   `json:"IsSystemInstalled"`
	OperatingMode             string   `json:"OperatingMode"`
	PacTotalW                 float64  `json:"Pac_total_W"`
	ProductionW               float64  `json:"Production_W"`
	RSOC                      float64  `json:"RSOC"`
	Sac1                      *float64 `json:"Sac1"`
	Sac2                      *float64 `json:"Sac2"`
	Sac3                      *float64 `json:"Sac3"`
	SystemStatus              string   `json:"SystemStatus"`
	Timestamp                 string   `json:"Timestamp"`
	USOC                      float64  `json:"USOC"`
	Uac                       float64  `json:"Uac"`
	Ubat                      float64  `json:"Ubat"`
	DischargeNotAllowed       bool     `json:"dischargeNotAllowed"`
	GeneratorAutostart        bool     `json:"generator_autostart"`
}

// InverterStatus is the record returned by /inverter
type InverterStatus struct {
	Fac          float64 `json:"fac"`
	IacTotal     float64 `json:"iac_total"`
	Ibat         float64 `json:"ibat"`
	Ipv          float64 `json:"ipv"`
	PacMicrogrid float64 `json:"pac_microgrid"`
	PacTotal     float64 `json:"pac_total"`
	Pbat         float64 `json:"pbat"`
	Phi          float64 `json:"phi"`
	Ppv          float64 `json:"ppv"`
	SacTotal     float64 `json:"sac_total"`
	Tmax         float64 `json:"tmax"`
	Uac          float64 `json:"uac"`
	Ubat         float64 `json:"ubat"`
	Upv          float64 `json:"upv"`
}

// Configuration is the record returned by /configurations. Every value is a string.
type Configuration struct {
	MarketingModuleCapacity string `json:"CM_MarketingModuleCapacity"`
	CascadingRole           string `json:"CN_CascadingRole"`
	Software                string `json:"DE_Software"`
	OperatingMode           string `json:"EM_OperatingMode"`
	PrognosisCharging       string `json:"EM_Prognosis_Charging"`
	ReEnableMicrogrid       string `json:"EM_RE_ENABLE_MICROGRID"`
	ToUSchedule             string `json:"EM_ToU_Schedule"`
	UserInputTimeOne        string `json:"EM_USER_INPUT_TIME_ONE"`
	UserInputTimeThree      string `json:"EM_USER_INPUT_TIME_THREE"`
	UserInputTimeTwo        string `json:"EM_USER_INPUT_TIME_TWO"`
	USOC                    string `json:"EM_USOC"`
	USCHPMaxSOC             string `json:"EM_US_CHP_Max_SOC"`
	USCHPMinSOC             string `json:"EM_US_CHP_Min_SOC"`
	USGeneratorType         string `json:"EM_US_GENRATOR_TYPE"`
	USGenPowerSetPoint      string `json:"EM_US_GEN_POWER_SET_POINT"`
	USReEnableMicrogrid     string `json:"EM_US_RE_ENABLE_MICROGRID"`
	USUserInputTimeOne      string `json:"EM_US_USER_INPUT_TIME_ONE"`
	USUserInputTimeThree    string `json:"EM_US_USER_INPUT_TIME_THREE"`
	USUserInputTimeTwo      string `json:"EM_US_USER_INPUT_TIME_TWO"`
	BatteryModules          string `json:"IC_BatteryModules"`
	InverterMaxPowerW       string `json:"IC_InverterMaxPower_w"`
	PfcFixedCosPhi          string `json:"NVM_PfcFixedCosPhi"`
	PfcIsFixedCosPhiActive  string `json:"NVM_PfcIsFixedCosPhiActive"`
	PfcIsFixedCosPhiLagging string `json:"NVM_PfcIsFixedCosPhiLagging"`
	HeaterOperatingMode     string `json:"SH_HeaterOperatingMode"`
	HeaterTemperatureMax    string `json:"SH_HeaterTemperatureMax"`
	HeaterTemperatureMin    string `json:"SH_HeaterTemperatureMin"`
}

// ICStatus contains internal component status information
type ICStatus struct {
	StateBMS               string `json:"statebms"`
	StateCoreControlModule string `json:"statecorecontrolmodule"`
	StateInverter          string `json:"stateinverter"`
	NrBatteryModules       int    `json:"nrbatterymodules"`
}

// LatestData is the record returned by /latestdata
type LatestData struct {
	ConsumptionW       float64  `json:"Consumption_W"`
	FullChargeCapacity float64  `json:"FullChargeCapacity"`
	GridFeedInW        float64  `json:"GridFeedIn_W"`
	PacTotalW          float64  `json:"Pac_total_W"`
	ProductionW        float64  `json:"Production_W"`
	RSOC               float64  `json:"RSOC"`
	USOC               float64  `json:"USOC"`
	Timestamp          string   `json:"Timestamp"`
	ICStatus           ICStatus `json:"ic_status"`
}

// Snapshot is one consistent pair of status records
type Snapshot struct {
	Battery  BatteryStatus
	Inverter InverterStatus
}
