package syntax

// carsSource exercises the constructs both adapters must agree on.
const carsSource = `package com.example.cars

import kotlin.math.max

/* a { brace in a comment */
abstract class Vehicle(val wheels: Int) {
    abstract fun drive(): String

    fun describe(): String {
        val label = "Vehicle with { $wheels } wheels"
        return label
    }
}

interface Engine {
    fun start()
}

class Car(
    private val brand: String,
    var speed: Int = 0
) : Vehicle(4), Engine, com.example.Serializable<Car> {
    val name: String = "car"

    override fun drive(): String = "driving $brand"

    override fun start() {
        if (speed > 0 && brand.isNotEmpty()) {
            speed = 1
        }
    }

    fun getName(): String {
        return name
    }
}

object Garage : Registry<Car>() {
    fun park(car: Car) = car.drive()
}

class Marker

fun main() {
    println(Car("x").drive())
}
`

type wantMember struct {
	kind    MemberKind
	name    string
	hasBody bool
}

type wantDecl struct {
	name    string
	kind    Kind
	supers  []string
	hasBody bool
	members []wantMember
}

var carsDecls = []wantDecl{
	{
		name: "Vehicle", kind: KindClass, hasBody: true,
		members: []wantMember{
			{MemberProperty, "wheels", false},
			{MemberFunction, "drive", false},
			{MemberFunction, "describe", true},
		},
	},
	{
		name: "Engine", kind: KindInterface, hasBody: true,
		members: []wantMember{
			{MemberFunction, "start", false},
		},
	},
	{
		name: "Car", kind: KindClass, hasBody: true,
		supers: []string{"Vehicle", "Engine", "Serializable"},
		members: []wantMember{
			{MemberProperty, "brand", false},
			{MemberProperty, "speed", false},
			{MemberProperty, "name", false},
			{MemberFunction, "drive", true},
			{MemberFunction, "start", true},
			{MemberFunction, "getName", true},
		},
	},
	{
		name: "Garage", kind: KindClass, hasBody: true,
		supers: []string{"Registry"},
		members: []wantMember{
			{MemberFunction, "park", true},
		},
	},
	{name: "Marker", kind: KindClass},
}
