package datamall

// Endpoint identifies a DataMall dataset.
type Endpoint struct {
	Name string
	Path string
	// SingleShot endpoints return a complete response in one request and
	// ignore pagination.
	SingleShot bool
}

// Known DataMall datasets.
var (
	BusArrival             = Endpoint{Name: "bus_arrival", Path: "v3/BusArrival", SingleShot: true}
	BusServices            = Endpoint{Name: "bus_services", Path: "BusServices"}
	BusRoutes              = Endpoint{Name: "bus_routes", Path: "BusRoutes"}
	BusStops               = Endpoint{Name: "bus_stops", Path: "BusStops"}
	PassengerVolumeBus     = Endpoint{Name: "passenger_volume_bus", Path: "PV/Bus"}
	PassengerVolumeODBus   = Endpoint{Name: "passenger_volume_od_bus", Path: "PV/ODBus"}
	PassengerVolumeTrain   = Endpoint{Name: "passenger_volume_train", Path: "PV/Train"}
	PassengerVolumeODTrain = Endpoint{Name: "passenger_volume_od_train", Path: "PV/ODTrain"}
	TaxiAvailability       = Endpoint{Name: "taxi_availability", Path: "Taxi-Availability"}
	TaxiStands             = Endpoint{Name: "taxi_stands", Path: "TaxiStands", SingleShot: true}
	TrainServiceAlerts     = Endpoint{Name: "train_service_alerts", Path: "TrainServiceAlerts", SingleShot: true}
	CarparkAvailability    = Endpoint{Name: "carpark_availability", Path: "CarParkAvailabilityv2"}
	EstTravelTimes         = Endpoint{Name: "est_travel_times", Path: "EstTravelTimes"}
	FaultyTrafficLights    = Endpoint{Name: "faulty_traffic_lights", Path: "FaultyTrafficLights"}
	RoadOpenings           = Endpoint{Name: "road_openings", Path: "RoadOpenings"}
	RoadWorks              = Endpoint{Name: "road_works", Path: "RoadWorks"}
	TrafficImages          = Endpoint{Name: "traffic_images", Path: "Traffic-Imagesv2"}
	TrafficIncidents       = Endpoint{Name: "traffic_incidents", Path: "TrafficIncidents"}
	TrafficSpeedBands      = Endpoint{Name: "traffic_speed_bands", Path: "v3/TrafficSpeedBands"}
	VMS                    = Endpoint{Name: "vms", Path: "VMS"}
)

// Endpoints lists every known dataset.
var Endpoints = []Endpoint{
	BusArrival, BusServices, BusRoutes, BusStops,
	PassengerVolumeBus, PassengerVolumeODBus, PassengerVolumeTrain, PassengerVolumeODTrain,
	TaxiAvailability, TaxiStands, TrainServiceAlerts, CarparkAvailability,
	EstTravelTimes, FaultyTrafficLights, RoadOpenings, RoadWorks,
	TrafficImages, TrafficIncidents, TrafficSpeedBands, VMS,
}

// LookupEndpoint finds a dataset by name.
func LookupEndpoint(name string) (Endpoint, bool) {
	for _, ep := range Endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return Endpoint{}, false
}
