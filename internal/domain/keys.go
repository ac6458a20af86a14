package domain

// KeyPrefix namespaces every storage key of this service.
const KeyPrefix = "mvw:"
