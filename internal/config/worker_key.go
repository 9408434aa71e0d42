package config

type WorkerKeyStruct struct {
	PersistMovementsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistMovementsQueue: "persist_movements_queue",
}
