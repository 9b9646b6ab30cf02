package flatbuffers

//go:generate flatc --go --go-namespace message -o message message.fbs
//go:generate flatc --go --go-namespace snapshot -o snapshot snapshot.fbs
